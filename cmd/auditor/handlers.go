package main

import (
	"encoding/json"
	"net/http"
	"time"

	"asset-swapper-go/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log *zap.Logger
	db  *gorm.DB
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB) *APIHandler {
	return &APIHandler{log: log, db: db}
}

// DepositsHandler returns all recorded deposits, most recent first.
func (h *APIHandler) DepositsHandler(w http.ResponseWriter, r *http.Request) {
	var deposits []models.Deposit
	if err := h.db.Order("timestamp desc").Find(&deposits).Error; err != nil {
		h.log.Error("Failed to get deposits from database", zap.Error(err))
		http.Error(w, "Failed to get deposits", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deposits)
}

// SettlementsHandler returns all recorded swap settlements, most recent first.
func (h *APIHandler) SettlementsHandler(w http.ResponseWriter, r *http.Request) {
	var settlements []models.Settlement
	if err := h.db.Order("timestamp desc").Find(&settlements).Error; err != nil {
		h.log.Error("Failed to get settlements from database", zap.Error(err))
		http.Error(w, "Failed to get settlements", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settlements)
}

// WithdrawalsHandler returns all recorded withdrawals, most recent first.
func (h *APIHandler) WithdrawalsHandler(w http.ResponseWriter, r *http.Request) {
	var withdrawals []models.Withdrawal
	if err := h.db.Order("timestamp desc").Find(&withdrawals).Error; err != nil {
		h.log.Error("Failed to get withdrawals from database", zap.Error(err))
		http.Error(w, "Failed to get withdrawals", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(withdrawals)
}

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	Settlements  int64           `json:"settlements"`
	AveragePrice decimal.Decimal `json:"average_price"`
	BestPrice    decimal.Decimal `json:"best_price"`
	WorstPrice   decimal.Decimal `json:"worst_price"`
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// StatisticsHandler aggregates realized execution prices over the
// recorded settlements.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	var settlements []models.Settlement
	if err := h.db.Find(&settlements).Error; err != nil {
		h.log.Error("Failed to get settlements for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	since24h := time.Now().Add(-24 * time.Hour).Unix()

	all := aggregate(settlements, 0)
	recent := aggregate(settlements, since24h)

	response := StatisticsResponse{
		Since24h: recent,
		AllTime:  all,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func aggregate(settlements []models.Settlement, since int64) StatsDetail {
	detail := StatsDetail{}
	sum := decimal.Zero

	for _, s := range settlements {
		if s.Timestamp < since {
			continue
		}
		detail.Settlements++
		sum = sum.Add(s.Price)
		if detail.BestPrice.IsZero() || s.Price.GreaterThan(detail.BestPrice) {
			detail.BestPrice = s.Price
		}
		if detail.WorstPrice.IsZero() || s.Price.LessThan(detail.WorstPrice) {
			detail.WorstPrice = s.Price
		}
	}

	if detail.Settlements > 0 {
		detail.AveragePrice = sum.Div(decimal.NewFromInt(detail.Settlements))
	}
	return detail
}
