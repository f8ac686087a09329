package api

import (
	"encoding/json"
	"log"
	"net/http"
)

type StatusProvider interface {
	GetLastProcessedBlock() (uint64, error)
}

type Handler struct {
	sp StatusProvider
}

type StatusResponse struct {
	LastProcessedBlock uint64 `json:"lastProcessedBlock"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func NewHandler(sp StatusProvider) *Handler {
	return &Handler{sp: sp}
}

func (h *Handler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(HealthResponse{Status: "UP"})
	if err != nil {
		log.Printf("Error encoding response: %v", err)
		http.Error(w, "Error encoding response", 500)
	}
}

func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	lastProcessedBlock, err := h.sp.GetLastProcessedBlock()
	if err != nil {
		log.Printf("Error getting last processed block: %v", err)
		http.Error(w, "Error getting last processed block", 500)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(StatusResponse{
		LastProcessedBlock: lastProcessedBlock,
	})
	if err != nil {
		log.Printf("Error encoding response: %v", err)
		http.Error(w, "Error encoding response", 500)
	}
}
