package handlers

import (
	"net/http"

	"truowners/internal/services"
	"truowners/internal/utils/helpers"
)

type PropertyViewHandler struct {
	viewService *services.PropertyViewService
}

func NewPropertyViewHandler(viewService *services.PropertyViewService) *PropertyViewHandler {
	return &PropertyViewHandler{viewService: viewService}
}

// ViewOwnerDetails godoc
// @Summary Открыть контакты владельца
// @Description Списывает один контакт из подписки. Повторный просмотр в той же подписке бесплатный.
// @Tags property-views
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID объекта"
// @Success 200 {object} helpers.Response{data=models.ContactReveal}
// @Failure 403 {object} helpers.Response "Нет подписки или лимит исчерпан"
// @Failure 404 {object} helpers.Response
// @Router /api/properties/{id}/owner [get]
func (h *PropertyViewHandler) ViewOwnerDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	reveal, err := h.viewService.ViewOwnerDetails(r.Context(), currentUserID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, reveal)
}

// ViewedProperties godoc
// @Summary Просмотренные в текущей подписке объекты
// @Tags property-views
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=[]models.PropertyView}
// @Router /api/property-views [get]
func (h *PropertyViewHandler) ViewedProperties(w http.ResponseWriter, r *http.Request) {
	items, err := h.viewService.ViewedProperties(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, items)
}
