package handlers

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"truowners/internal/logger"
	"truowners/internal/utils/helpers"
)

// AdminLogsHandler отдаёт админке JSON-логи сервиса за последние дни.
// Читает текущий app.log и ротированные lumberjack файлы app-<timestamp>.log[.gz].
type AdminLogsHandler struct {
	LogDir    string
	Retention int
	now       func() time.Time
}

func NewAdminLogsHandler() *AdminLogsHandler {
	return &AdminLogsHandler{LogDir: logger.Dir, Retention: 14, now: time.Now}
}

var reDay = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// logEntry — поля, которые пишет наш zap-энкодер.
type logEntry struct {
	Time      string `json:"time"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	UserID    *int64 `json:"user_id"`
}

func (e logEntry) timestamp() (time.Time, bool) {
	for _, layout := range []string{logger.TimeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, e.Time); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type logQuery struct {
	levels    map[string]bool
	hour      *int
	text      *regexp.Regexp
	requestID string
	userID    *int64
}

func (q logQuery) match(raw []byte, e logEntry) bool {
	if q.text != nil && !q.text.Match(raw) {
		return false
	}
	if len(q.levels) > 0 && !q.levels[strings.ToUpper(e.Level)] {
		return false
	}
	if q.requestID != "" && e.RequestID != q.requestID {
		return false
	}
	if q.userID != nil && (e.UserID == nil || *e.UserID != *q.userID) {
		return false
	}
	if q.hour != nil {
		if t, ok := e.timestamp(); ok && t.Hour() != *q.hour {
			return false
		}
	}
	return true
}

func parseLogQuery(r *http.Request) logQuery {
	v := r.URL.Query()
	q := logQuery{requestID: strings.TrimSpace(v.Get("request_id"))}
	for _, lvl := range strings.Split(v.Get("level"), ",") {
		if lvl = strings.ToUpper(strings.TrimSpace(lvl)); lvl != "" {
			if q.levels == nil {
				q.levels = map[string]bool{}
			}
			q.levels[lvl] = true
		}
	}
	if hv, err := strconv.Atoi(v.Get("hour")); err == nil && hv >= 0 && hv <= 23 {
		q.hour = &hv
	}
	if s := strings.TrimSpace(v.Get("q")); s != "" {
		q.text = regexp.MustCompile("(?i)" + regexp.QuoteMeta(s))
	}
	if uid, err := strconv.ParseInt(v.Get("user_id"), 10, 64); err == nil {
		q.userID = &uid
	}
	return q
}

// ListDays godoc
// @Summary Дни, за которые есть логи
// @Tags admin-logs
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response
// @Router /api/admin/logs/days [get]
func (h *AdminLogsHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	today := h.now().Local()
	days := make([]string, 0, h.Retention)
	for i := 0; i < h.Retention; i++ {
		d := today.AddDate(0, 0, -i).Format("2006-01-02")
		if files, err := h.filesForDay(d); err == nil && len(files) > 0 {
			days = append(days, d)
		}
	}
	sort.Strings(days)
	helpers.JSON(w, http.StatusOK, map[string]interface{}{"days": days})
}

// GetLogs godoc
// @Summary Логи за день
// @Description Фильтры по уровню, часу, подстроке, request_id и user_id. Пагинация курсором по номеру строки.
// @Tags admin-logs
// @Security ApiKeyAuth
// @Produce json
// @Param day query string true "Дата (YYYY-MM-DD)"
// @Param level query string false "CSV уровней: debug,info,warn,error"
// @Param hour query int false "Час (0-23)"
// @Param q query string false "Подстрока"
// @Param request_id query string false "ID запроса"
// @Param user_id query int false "ID пользователя"
// @Param limit query int false "Лимит (по умолчанию 200, макс. 1000)"
// @Param cursor query int false "Номер строки, с которой продолжить"
// @Success 200 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Router /api/admin/logs [get]
func (h *AdminLogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if !reDay.MatchString(day) {
		helpers.Error(w, http.StatusBadRequest, "некорректная дата")
		return
	}
	q := parseLogQuery(r)
	limit := clampAtoi(r.URL.Query().Get("limit"), 200, 1, 1000)
	cursor := clampAtoi(r.URL.Query().Get("cursor"), 0, 0, 10_000_000)

	lineNo := 0
	items := make([]json.RawMessage, 0)
	err := h.scanDay(day, func(raw []byte, e logEntry) bool {
		lineNo++
		if lineNo <= cursor || !q.match(raw, e) {
			return true
		}
		items = append(items, append(json.RawMessage{}, raw...))
		return len(items) < limit
	})
	if err != nil {
		helpers.Error(w, http.StatusNotFound, "логи за этот день не найдены")
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]interface{}{
		"day":         day,
		"items":       items,
		"next_cursor": lineNo,
	})
}

// Stats godoc
// @Summary Количество записей по часам и уровням
// @Tags admin-logs
// @Security ApiKeyAuth
// @Produce json
// @Param day query string true "Дата (YYYY-MM-DD)"
// @Success 200 {object} helpers.Response
// @Router /api/admin/logs/stats [get]
func (h *AdminLogsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if !reDay.MatchString(day) {
		helpers.Error(w, http.StatusBadRequest, "некорректная дата")
		return
	}
	stats := make(map[int]map[string]int, 24)
	for hr := 0; hr < 24; hr++ {
		stats[hr] = map[string]int{}
	}
	_ = h.scanDay(day, func(_ []byte, e logEntry) bool {
		if t, ok := e.timestamp(); ok && e.Level != "" {
			stats[t.Hour()][strings.ToUpper(e.Level)]++
		}
		return true
	})
	helpers.JSON(w, http.StatusOK, map[string]interface{}{"day": day, "stats": stats})
}

// StatsSummary godoc
// @Summary Сводка уровней логов за N дней
// @Tags admin-logs
// @Security ApiKeyAuth
// @Produce json
// @Param days query int false "Количество дней (по умолчанию 7)"
// @Success 200 {object} helpers.Response
// @Router /api/admin/logs/summary [get]
func (h *AdminLogsHandler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	days := clampAtoi(r.URL.Query().Get("days"), 7, 1, h.Retention)
	total := 0
	levels := map[string]int{}
	byDay := map[string]map[string]int{}

	today := h.now().Local()
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, -i).Format("2006-01-02")
		dayStats := map[string]int{}
		_ = h.scanDay(d, func(_ []byte, e logEntry) bool {
			if e.Level == "" {
				return true
			}
			lvl := strings.ToUpper(e.Level)
			dayStats[lvl]++
			levels[lvl]++
			total++
			return true
		})
		if len(dayStats) > 0 {
			byDay[d] = dayStats
		}
	}
	helpers.JSON(w, http.StatusOK, map[string]interface{}{"total": total, "levels": levels, "by_day": byDay})
}

// DownloadRaw godoc
// @Summary Скачать файл логов за день
// @Tags admin-logs
// @Security ApiKeyAuth
// @Produce octet-stream
// @Param day query string true "Дата (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 404 {object} helpers.Response
// @Router /api/admin/logs/download [get]
func (h *AdminLogsHandler) DownloadRaw(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if !reDay.MatchString(day) {
		helpers.Error(w, http.StatusBadRequest, "некорректная дата")
		return
	}
	files, err := h.filesForDay(day)
	if err != nil || len(files) == 0 {
		helpers.Error(w, http.StatusNotFound, "файл не найден")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(files[0])))
	http.ServeFile(w, r, files[0])
}

// filesForDay: app.log относится к сегодняшнему дню, ротированные файлы узнаются по дате в имени.
func (h *AdminLogsHandler) filesForDay(day string) ([]string, error) {
	entries, err := os.ReadDir(h.LogDir)
	if err != nil {
		return nil, err
	}
	today := h.now().Local().Format("2006-01-02")

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case name == "app.log" && day == today:
			files = append(files, filepath.Join(h.LogDir, name))
		case strings.HasPrefix(name, "app-") && strings.Contains(name, day) &&
			(strings.HasSuffix(name, ".log") || strings.HasSuffix(name, ".gz")):
			files = append(files, filepath.Join(h.LogDir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// scanDay вызывает fn для каждой JSON-строки дня, пока fn возвращает true.
func (h *AdminLogsHandler) scanDay(day string, fn func(raw []byte, e logEntry) bool) error {
	files, err := h.filesForDay(day)
	if err != nil || len(files) == 0 {
		return os.ErrNotExist
	}
	for _, path := range files {
		if !scanFile(path, fn) {
			break
		}
	}
	return nil
}

func scanFile(path string, fn func(raw []byte, e logEntry) bool) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return true
		}
		defer gz.Close()
		reader = gz
	}

	sc := bufio.NewScanner(reader)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e logEntry
		if json.Unmarshal(sc.Bytes(), &e) != nil {
			continue
		}
		if !fn(sc.Bytes(), e) {
			return false
		}
	}
	return true
}

func clampAtoi(s string, def, min, max int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
