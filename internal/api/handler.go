package api

import (
	"Go2NetEntropy/internal/cache"
	"Go2NetEntropy/internal/model"
	"Go2NetEntropy/internal/report"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler serves cached experiment tables. It never computes anything.
type Handler struct {
	cache *cache.Cache
}

// NewHandler creates a handler reading from c.
func NewHandler(c *cache.Cache) *Handler {
	return &Handler{cache: c}
}

// Router returns the routes of the API.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/experiments", h.listExperimentsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/experiments/{key}/summary", h.summaryHandler).Methods(http.MethodGet)
	v1.HandleFunc("/experiments/{key}/entropy", h.entropyHandler).Methods(http.MethodGet)
	return r
}

// ExperimentList is the response of the experiments listing.
type ExperimentList struct {
	Experiments []string `json:"experiments"`
}

// EntropyResponse holds H(n) for n in [From, To].
type EntropyResponse struct {
	Experiment string    `json:"experiment"`
	Frames     int       `json:"frames"`
	From       int       `json:"from"`
	To         int       `json:"to"`
	Entropy    []float64 `json:"entropy"`
}

func (h *Handler) listExperimentsHandler(w http.ResponseWriter, r *http.Request) {
	keys, err := h.cache.Experiments()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list experiments: %v", err), http.StatusInternalServerError)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, ExperimentList{Experiments: keys})
}

func (h *Handler) summaryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	summary, err := cache.Load(h.cache, id, model.KindSymbols, cache.SummaryCodec{})
	if err != nil {
		loadError(w, id, err)
		return
	}
	writeJSON(w, report.NewSummaryDocument(id, summary))
}

func (h *Handler) entropyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	running, err := cache.Load(h.cache, id, model.KindRunning, cache.RunningCodec{})
	if err != nil {
		loadError(w, id, err)
		return
	}

	n := running.Len()
	from, err := intParam(r, "from", 1)
	if err != nil || from < 1 {
		http.Error(w, "from must be a positive integer", http.StatusBadRequest)
		return
	}
	to, err := intParam(r, "to", n)
	if err != nil || (r.URL.Query().Has("to") && to < from) {
		http.Error(w, "to must be an integer not below from", http.StatusBadRequest)
		return
	}
	if to > n {
		to = n
	}

	resp := EntropyResponse{Experiment: id.Key(), Frames: n, From: from, To: to, Entropy: []float64{}}
	if from <= to {
		for _, row := range running.Rows[from-1 : to] {
			resp.Entropy = append(resp.Entropy, row.Entropy)
		}
	}
	writeJSON(w, resp)
}

func identity(w http.ResponseWriter, r *http.Request) (model.ExperimentIdentity, bool) {
	id, err := model.ParseKey(mux.Vars(r)["key"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return model.ExperimentIdentity{}, false
	}
	return id, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func loadError(w http.ResponseWriter, id model.ExperimentIdentity, err error) {
	if errors.Is(err, cache.ErrNotCached) {
		http.Error(w, fmt.Sprintf("experiment %s is not cached", id.Key()), http.StatusNotFound)
		return
	}
	logrus.WithError(err).WithField("experiment", id.Key()).Error("Failed to load artifact")
	http.Error(w, fmt.Sprintf("failed to load experiment %s", id.Key()), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonBytes)
}
