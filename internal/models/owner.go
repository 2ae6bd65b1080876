package models

// DetailPending — значение KYC-полей владельца, которые ещё не заполнены.
const DetailPending = "pending"

type Owner struct {
	ID                      int64  `json:"id"`
	UserID                  *int64 `json:"user_id,omitempty"`
	Name                    string `json:"name"`
	Email                   string `json:"email"`
	Phone                   string `json:"phone"`
	IDProofType             string `json:"id_proof_type"`
	IDProofNumber           string `json:"id_proof_number"`
	IDProofImageURL         string `json:"id_proof_image_url"`
	ElectricityBill         string `json:"electricity_bill"`
	ElectricityBillImageURL string `json:"electricity_bill_image_url"`
	Verified                bool   `json:"verified"`
	PropertyCount           int    `json:"property_count"`
}

// OwnerInput — данные владельца, присланные админом вместе с объектом.
type OwnerInput struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone"`
	IDProofType     string `json:"id_proof_type"`
	IDProofNumber   string `json:"id_proof_number"`
	IDProofImageURL string `json:"id_proof_image_url"`
}

func (o OwnerInput) IsEmpty() bool {
	return o.Name == "" && o.Email == "" && o.Phone == "" &&
		o.IDProofType == "" && o.IDProofNumber == "" && o.IDProofImageURL == ""
}

// OwnerContact — раскрытые контакты владельца.
type OwnerContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
