package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"truowners/internal/logger"
	"truowners/internal/reqctx"
	"truowners/internal/services"
	"truowners/internal/utils/helpers"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var validate = validator.New()

// writeError переводит доменную ошибку сервиса в HTTP-статус.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrGateway):
		status = http.StatusBadGateway
	}

	var svcErr *services.Error
	msg := "внутренняя ошибка сервера"
	switch {
	case errors.As(err, &svcErr):
		msg = svcErr.Msg
	case status == http.StatusNotFound:
		msg = "не найдено"
	case status == http.StatusConflict:
		msg = "конфликт данных"
	}

	log := logger.WithCtx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Ошибка обработки запроса", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Debug("Запрос отклонён", zap.Int("status", status), zap.String("reason", msg))
	}
	helpers.Error(w, status, msg)
}

// decodeJSON читает тело запроса и проверяет его по тегам validate.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		logger.WithCtx(r.Context()).Warn("Ошибка декодирования JSON", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		helpers.Error(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "некорректные данные"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return "некорректные поля: " + strings.Join(parts, ", ")
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("некорректный %s", name)
	}
	return id, nil
}

func currentUserID(r *http.Request) int64 {
	id, _ := reqctx.GetUserID(r.Context())
	return id
}

func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryIntPtr(r *http.Request, key string) *int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func queryFloatPtr(r *http.Request, key string) *float64 {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// queryTimePtr принимает дату в формате 2006-01-02 или RFC3339.
func queryTimePtr(r *http.Request, key string) *time.Time {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// pageParams читает page/limit с теми же границами, что и сервисы.
func pageParams(r *http.Request) (page, limit int) {
	page, limit = queryInt(r, "page", 1), queryInt(r, "limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
