package handlers

import (
	"net/http"

	"truowners/internal/models"
	"truowners/internal/services"
	"truowners/internal/utils/helpers"
)

type OwnerHandler struct {
	ownerService *services.OwnerService
}

func NewOwnerHandler(ownerService *services.OwnerService) *OwnerHandler {
	return &OwnerHandler{ownerService: ownerService}
}

type uploadPropertyRequest struct {
	models.PropertyInput
	OwnerPhone                   string `json:"owner_phone" validate:"omitempty,min=7,max=20"`
	OwnerIDProofType             string `json:"owner_id_proof_type"`
	OwnerIDProofNumber           string `json:"owner_id_proof_number"`
	OwnerIDProofImageURL         string `json:"owner_id_proof_image_url" validate:"omitempty,url"`
	OwnerElectricityBillNumber   string `json:"owner_electricity_bill_number"`
	OwnerElectricityBillImageURL string `json:"owner_electricity_bill_image_url" validate:"omitempty,url"`
}

// UploadProperty godoc
// @Summary Загрузка объекта владельцем
// @Description Объект уходит на проверку. Нужен номер или фото счёта за электричество.
// @Tags owner
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body uploadPropertyRequest true "Объект"
// @Success 201 {object} helpers.Response{data=services.OwnerPropertyView}
// @Failure 400 {object} helpers.Response
// @Failure 403 {object} helpers.Response "Нет профиля владельца"
// @Router /api/owner/properties [post]
func (h *OwnerHandler) UploadProperty(w http.ResponseWriter, r *http.Request) {
	var req uploadPropertyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.ownerService.UploadProperty(r.Context(), currentUserID(r), services.UploadPropertyInput{
		PropertyInput:                req.PropertyInput,
		OwnerPhone:                   req.OwnerPhone,
		OwnerIDProofType:             req.OwnerIDProofType,
		OwnerIDProofNumber:           req.OwnerIDProofNumber,
		OwnerIDProofImageURL:         req.OwnerIDProofImageURL,
		OwnerElectricityBillNumber:   req.OwnerElectricityBillNumber,
		OwnerElectricityBillImageURL: req.OwnerElectricityBillImageURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, view)
}

// ListMyProperties godoc
// @Summary Объекты текущего владельца
// @Tags owner
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=[]models.Property}
// @Router /api/owner/properties [get]
func (h *OwnerHandler) ListMyProperties(w http.ResponseWriter, r *http.Request) {
	items, err := h.ownerService.ListMyProperties(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, items)
}

// GetMyProperty godoc
// @Summary Объект владельца с данными владельца
// @Tags owner
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID объекта"
// @Success 200 {object} helpers.Response{data=services.OwnerPropertyView}
// @Failure 404 {object} helpers.Response
// @Router /api/owner/properties/{id} [get]
func (h *OwnerHandler) GetMyProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.ownerService.GetMyProperty(r.Context(), currentUserID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, view)
}

// UpdateMyProperty godoc
// @Summary Обновление объекта владельцем
// @Description Одобренный или опубликованный объект возвращается на проверку.
// @Tags owner
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "ID объекта"
// @Param input body models.PropertyInput true "Изменяемые поля"
// @Success 200 {object} helpers.Response{data=services.OwnerPropertyView}
// @Failure 400 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Router /api/owner/properties/{id} [put]
func (h *OwnerHandler) UpdateMyProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req models.PropertyInput
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.ownerService.UpdateMyProperty(r.Context(), currentUserID(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, view)
}

// DeleteMyProperty godoc
// @Summary Удаление объекта владельцем
// @Tags owner
// @Security ApiKeyAuth
// @Param id path int true "ID объекта"
// @Success 200 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Router /api/owner/properties/{id} [delete]
func (h *OwnerHandler) DeleteMyProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.ownerService.DeleteMyProperty(r.Context(), currentUserID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Объект удалён"})
}
