package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"killboard/internal/service"

	"github.com/rs/zerolog"
)

// KillboardServer exposes the killmail engine as a small JSON API.
type KillboardServer struct {
	detailSvc *service.KillmailDetailService
	battleSvc *service.BattleService
	ingestSvc *service.IngestService
	logger    zerolog.Logger
}

func NewKillboardServer(
	detailSvc *service.KillmailDetailService,
	battleSvc *service.BattleService,
	ingestSvc *service.IngestService,
	logger zerolog.Logger,
) *KillboardServer {
	return &KillboardServer{
		detailSvc: detailSvc,
		battleSvc: battleSvc,
		ingestSvc: ingestSvc,
		logger:    logger,
	}
}

// RegisterRoutes mounts the API on mux.
func (s *KillboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/killmails/{id}", s.GetKillmail)
	mux.HandleFunc("GET /api/killmails/{id}/battle", s.GetBattle)
	mux.HandleFunc("POST /api/killmails/{id}/{hash}", s.IngestKillmail)
	mux.HandleFunc("GET /healthz", s.Healthz)
}

func (s *KillboardServer) GetKillmail(w http.ResponseWriter, r *http.Request) {
	killmailID, ok := s.pathID(w, r)
	if !ok {
		return
	}

	detail := s.detailSvc.GetKillmailDetail(r.Context(), killmailID)
	if detail == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "killmail not found"})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *KillboardServer) GetBattle(w http.ResponseWriter, r *http.Request) {
	killmailID, ok := s.pathID(w, r)
	if !ok {
		return
	}

	report := s.battleSvc.GetBattleReportForKillmail(r.Context(), killmailID)
	if report == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no battle"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *KillboardServer) IngestKillmail(w http.ResponseWriter, r *http.Request) {
	killmailID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	hash := r.PathValue("hash")
	if hash == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing killmail hash"})
		return
	}

	km, err := s.ingestSvc.Ingest(r.Context(), killmailID, hash)
	if err != nil {
		s.logger.Error().Err(err).Int64("killmail_id", killmailID).Msg("ingest failed")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "ingest failed"})
		return
	}
	writeJSON(w, http.StatusOK, km)
}

func (s *KillboardServer) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *KillboardServer) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid killmail id"})
		return 0, false
	}
	return id, true
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
