package realtime

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/openmobility/tripflow/pkg/common/logger"
)

type HTTPHandler struct {
	service       *Service
	maxBody       int64
	tripRetention int
	recRetention  int
}

func NewHTTPHandler(service *Service, maxBody int64, tripRetentionDays, recordRetentionDays int) *HTTPHandler {
	return &HTTPHandler{
		service:       service,
		maxBody:       maxBody,
		tripRetention: tripRetentionDays,
		recRetention:  recordRetentionDays,
	}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/feeds/{contributor}", h.handleIngest).Methods(http.MethodPost)
	router.HandleFunc("/feeds/{contributor}/status", h.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/contributors", h.handleContributors).Methods(http.MethodGet)
	router.HandleFunc("/purge/trip-updates", h.handlePurgeTripUpdates).Methods(http.MethodPost)
	router.HandleFunc("/purge/ingestion-records", h.handlePurgeRecords).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	contributorID := mux.Vars(r)["contributor"]

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	raw, err := ioutil.ReadAll(r.Body)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to read feed body")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Ingest(r.Context(), contributorID, raw)
	if err != nil {
		switch {
		case IsValidationError(err) || IsDecodeError(err):
			// The attempt may still have produced an audit record.
			if result != nil {
				writeJSON(w, http.StatusBadRequest, result)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrUnknownContributor):
			http.Error(w, "contributor not found", http.StatusNotFound)
		case IsExternalError(err):
			logger.Log.WithError(err).Error("feed processing hit a collaborator failure")
			http.Error(w, "upstream failure", http.StatusBadGateway)
		default:
			logger.Log.WithError(err).Error("failed to process feed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	contributorID := mux.Vars(r)["contributor"]

	record, err := h.service.Status(r.Context(), contributorID)
	if err != nil {
		if errors.Is(err, ErrUnknownContributor) {
			http.Error(w, "contributor not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch contributor status")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "no ingestion yet for this contributor", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *HTTPHandler) handleContributors(w http.ResponseWriter, r *http.Request) {
	contributors, err := h.service.Contributors(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list contributors")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contributors": contributors,
		"count":        len(contributors),
	})
}

func (h *HTTPHandler) handlePurgeTripUpdates(w http.ResponseWriter, r *http.Request) {
	days, err := purgeDays(r, h.tripRetention)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	purged, err := h.service.PurgeTripUpdates(r.Context(), days)
	if err != nil {
		logger.Log.WithError(err).Error("trip update purge failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"purged": purged})
}

func (h *HTTPHandler) handlePurgeRecords(w http.ResponseWriter, r *http.Request) {
	days, err := purgeDays(r, h.recRetention)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	purged, err := h.service.PurgeIngestionRecords(r.Context(), days, ConnectorGTFSRT)
	if err != nil {
		logger.Log.WithError(err).Error("ingestion record purge failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"purged": purged})
}

func purgeDays(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return fallback, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		return 0, errors.New("days must be a positive integer")
	}
	return days, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
