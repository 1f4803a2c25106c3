package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sla-attribution-service/internal/api/dto"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/ports"
	"sla-attribution-service/internal/services"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	reportFilename  = "sla-analysis.xlsx"

	// multipartMemory is how much of an upload is buffered in memory before
	// spilling to temporary files.
	multipartMemory = 32 << 20

	defaultListLimit = 20
	maxListLimit     = 100
)

// Form values accepted for cutoff and due window instants.
var formTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// AnalysisHandler runs analyses over uploaded workbooks and serves the
// persisted run history.
type AnalysisHandler struct {
	Registry ports.RuleRegistry
	Runs     ports.RunRepository
	Codec    ports.WorkbookCodec
	// Reports caches rendered workbooks; nil disables caching.
	Reports        ports.ReportCache
	Location       *time.Location
	Workers        int
	MaxUploadBytes int64
	// Now defaults the cutoff when the request omits it.
	Now func() time.Time
}

// Create analyzes the uploaded files. It answers with the summary as JSON when
// the client accepts application/json, and with the report workbook otherwise.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, r, http.StatusBadRequest, "expected multipart/form-data body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := h.analyzeOptions(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, r, http.StatusBadRequest, "at least one file is required in field \"files\"")
		return
	}

	uploads, err := readUploads(files)
	if err != nil {
		log.Printf("req_id=%s read uploads failed: %v", requestID(r), err)
		writeError(w, r, http.StatusBadRequest, "could not read uploaded files")
		return
	}

	parts := make([][]byte, len(uploads))
	sources := make([]ports.WorkbookSource, len(uploads))
	for i, u := range uploads {
		parts[i] = u.data
		sources[i] = ports.WorkbookSource{Name: u.name, Body: bytes.NewReader(u.data)}
	}
	digest := services.DigestInputs(parts...)

	wantJSON := acceptsJSON(r)
	var cacheKey string
	if !wantJSON && h.Reports != nil {
		cacheKey = services.ReportKey(digest, opts, h.Registry)
		cached, ok, err := h.Reports.Get(ctx, cacheKey)
		if err != nil {
			log.Printf("req_id=%s report cache get failed: %v", requestID(r), err)
		}
		if ok {
			writeReport(w, r, cached.Workbook, cached.RunID, "hit")
			return
		}
	}

	shipments, err := h.Codec.ReadAll(ctx, sources, h.Location)
	if err != nil {
		if errors.Is(err, domain.ErrMissingColumns) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid workbook: %v", err))
		return
	}

	res, err := services.RunAnalysis(ctx, services.RunAnalysisRequest{
		Shipments:   shipments,
		InputDigest: digest,
		Options:     opts,
	}, h.Registry, h.Runs)
	if err != nil {
		if errors.Is(err, domain.ErrNoRecords) {
			writeError(w, r, http.StatusUnprocessableEntity, "uploaded files contain no shipment rows")
			return
		}
		log.Printf("req_id=%s run analysis failed: %v", requestID(r), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	if wantJSON {
		writeJSON(w, r, http.StatusCreated, analysisResponse(res, h.Location))
		return
	}

	var buf bytes.Buffer
	if err := h.Codec.WriteReport(ctx, &buf, res.Analysis, res.Summary); err != nil {
		log.Printf("req_id=%s write report failed: %v", requestID(r), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	if cacheKey != "" {
		cached := domain.CachedReport{RunID: res.Run.ID, Workbook: buf.Bytes()}
		if err := h.Reports.Put(ctx, cacheKey, cached); err != nil {
			log.Printf("req_id=%s report cache put failed: %v", requestID(r), err)
		}
	}

	writeReport(w, r, buf.Bytes(), res.Run.ID, "miss")
}

func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	runs, err := h.Runs.ListRuns(r.Context(), limit)
	if err != nil {
		log.Printf("req_id=%s list runs failed: %v", requestID(r), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListRunsResponse{Runs: make([]dto.RunResponse, 0, len(runs))}
	for _, run := range runs {
		res.Runs = append(res.Runs, runResponse(run, h.Location))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	run, err := h.Runs.GetRun(r.Context(), id)
	if errors.Is(err, domain.ErrRunNotFound) {
		writeError(w, r, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		log.Printf("req_id=%s get run failed: id=%s err=%v", requestID(r), id, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, runResponse(run, h.Location))
}

// analyzeOptions reads cutoff, the due window and the waiver flag from the form.
// A window is either due_from with due_to, or a single due_at instant.
func (h *AnalysisHandler) analyzeOptions(r *http.Request) (services.AnalyzeOptions, error) {
	opts := services.AnalyzeOptions{Workers: h.Workers}

	cutoff, err := h.formTime(r, "cutoff")
	if err != nil {
		return opts, err
	}
	if cutoff == nil {
		now := domain.WallClock(h.Now(), h.Location)
		cutoff = &now
	}
	opts.Cutoff = *cutoff

	from, err := h.formTime(r, "due_from")
	if err != nil {
		return opts, err
	}
	to, err := h.formTime(r, "due_to")
	if err != nil {
		return opts, err
	}
	at, err := h.formTime(r, "due_at")
	if err != nil {
		return opts, err
	}

	switch {
	case at != nil && (from != nil || to != nil):
		return opts, errors.New("use either due_at or due_from/due_to, not both")
	case at != nil:
		w := domain.NewDueBefore(*at)
		opts.Window = &w
	case from != nil && to != nil:
		w, err := domain.NewDueRange(*from, *to)
		if err != nil {
			return opts, err
		}
		opts.Window = &w
	case from != nil || to != nil:
		return opts, errors.New("due_from and due_to must be given together")
	}

	if v := r.FormValue("waive_on_target"); v != "" {
		waive, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("waive_on_target: %q is not a boolean", v)
		}
		opts.WaiveClientsOnTarget = waive
	}

	return opts, nil
}

// formTime parses an optional form time into the wall-clock form the exports
// use. Values with an offset are first converted to the handler's location.
func (h *AnalysisHandler) formTime(r *http.Request, field string) (*time.Time, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = domain.WallClock(t, h.Location)
		return &t, nil
	}
	for _, layout := range formTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("%s: unrecognized time %q (use RFC 3339 or 2006-01-02 15:04:05)", field, v)
}

type upload struct {
	name string
	data []byte
}

func readUploads(files []*multipart.FileHeader) ([]upload, error) {
	out := make([]upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", fh.Filename, err)
		}
		out = append(out, upload{name: fh.Filename, data: data})
	}
	return out, nil
}

func acceptsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeReport(w http.ResponseWriter, r *http.Request, report []byte, runID, cache string) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename))
	w.Header().Set("X-Cache", cache)
	if runID != "" {
		w.Header().Set("X-Run-ID", runID)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report); err != nil {
		log.Printf("req_id=%s write report body failed: %v", requestID(r), err)
	}
}

// localTime places a wall-clock analysis time in loc for display.
func localTime(t time.Time, loc *time.Location) time.Time {
	return domain.InZone(t, loc)
}

func localTimePtr(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	out := localTime(*t, loc)
	return &out
}

func analysisResponse(res *services.RunAnalysisResult, loc *time.Location) dto.AnalysisResponse {
	s := res.Summary
	out := dto.AnalysisResponse{
		RunID:     res.Run.ID,
		CreatedAt: res.Run.CreatedAt,
		Cutoff:    localTime(res.Run.Cutoff, loc),
		DueFrom:   localTimePtr(res.Run.WindowFrom, loc),
		DueTo:     localTimePtr(res.Run.WindowTo, loc),
		Total:     s.Total,
		Failed:    s.Failed,
		FailRate:  s.FailRate,
		Causes:    causeResponses(s.Causes),
		Clients:   make([]dto.ClientSummaryResponse, 0, len(s.Clients)),
		Hubs:      make([]dto.HubSummaryResponse, 0, len(s.Hubs)),
	}

	for _, c := range s.Clients {
		out.Clients = append(out.Clients, dto.ClientSummaryResponse{
			Client:      c.Client,
			Total:       c.Total,
			OK:          c.OK,
			Failed:      c.Failed,
			SuccessRate: c.SuccessRate,
			FailRate:    c.FailRate,
			TargetRate:  c.TargetRate,
			MeetsTarget: c.MeetsTarget,
			Causes:      causeResponses(c.Causes),
		})
	}

	for _, h := range s.Hubs {
		hub := dto.HubSummaryResponse{
			Hub:      h.Hub,
			Total:    h.Total,
			OK:       h.OK,
			Failed:   h.Failed,
			FailRate: h.FailRate,
			Causes:   causeResponses(h.Causes),
			Stations: make([]dto.StationSummaryResponse, 0, len(h.Stations)),
		}
		for _, st := range h.Stations {
			hub.Stations = append(hub.Stations, dto.StationSummaryResponse{
				Station: st.Station,
				Total:   st.Total,
				Causes:  causeResponses(st.Causes),
			})
		}
		out.Hubs = append(out.Hubs, hub)
	}

	return out
}

func causeResponses(causes []domain.CauseCount) []dto.CauseCountResponse {
	out := make([]dto.CauseCountResponse, 0, len(causes))
	for _, c := range causes {
		out = append(out, dto.CauseCountResponse{
			Cause: string(c.Cause),
			Party: string(c.Party),
			Count: c.Count,
			Share: c.Share,
		})
	}
	return out
}

func runResponse(run *domain.Run, loc *time.Location) dto.RunResponse {
	out := dto.RunResponse{
		ID:          run.ID,
		CreatedAt:   run.CreatedAt,
		Cutoff:      localTime(run.Cutoff, loc),
		DueFrom:     localTimePtr(run.WindowFrom, loc),
		DueTo:       localTimePtr(run.WindowTo, loc),
		InputDigest: run.InputDigest,
		Total:       run.Total,
		Failed:      run.Failed,
	}
	for _, c := range run.Clients {
		out.Clients = append(out.Clients, dto.RunClientResponse{
			Client:      c.Client,
			Total:       c.Total,
			Failed:      c.Failed,
			TargetRate:  c.TargetRate,
			MeetsTarget: c.MeetsTarget,
		})
	}
	return out
}
