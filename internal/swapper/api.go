package swapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// APIServer exposes the service over HTTP. The caller identity comes
// from the X-Account header; the service itself decides whether that
// identity may perform the operation.
type APIServer struct {
	server  *http.Server
	service *Service
	logger  *zap.Logger
}

// NewAPIServer creates a new APIServer listening on the given port.
func NewAPIServer(service *Service, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		service: service,
		logger:  logger.Named("api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /status", s.statusHandler)
	mux.HandleFunc("POST /deposit", s.depositHandler)
	mux.HandleFunc("POST /swap", s.swapHandler)
	mux.HandleFunc("POST /withdraw", s.withdrawHandler)
	mux.HandleFunc("POST /pause", s.pauseHandler)
	mux.HandleFunc("POST /unpause", s.unpauseHandler)
	mux.HandleFunc("POST /settings/{field}", s.settingsHandler)
	mux.HandleFunc("POST /admin/execute", s.executeHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type amountResponse struct {
	AmountOut string `json:"amount_out,omitempty"`
	Status    string `json:"status"`
}

func caller(r *http.Request) string {
	return r.Header.Get("X-Account")
}

func parseAmount(r *http.Request) (*big.Int, error) {
	var body amountRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	amount, ok := new(big.Int).SetString(body.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", body.Amount)
	}
	return amount, nil
}

// writeError maps the service's error taxonomy onto HTTP status codes.
func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ErrPaused), errors.Is(err, ErrWithdrawalDelayed):
		status = http.StatusConflict
	case errors.Is(err, ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidAmount):
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.CurrentStatus(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, status)
}

func (s *APIServer) depositHandler(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.service.Deposit(r.Context(), caller(r), amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, amountResponse{Status: "deposited"})
}

func (s *APIServer) swapHandler(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	amountOut, err := s.service.Swap(r.Context(), caller(r), amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, amountResponse{Status: "swapped", AmountOut: amountOut.String()})
}

func (s *APIServer) withdrawHandler(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.service.Withdraw(r.Context(), caller(r), amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, amountResponse{Status: "withdrawn"})
}

func (s *APIServer) pauseHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Pause(caller(r)); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "paused"})
}

func (s *APIServer) unpauseHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Unpause(caller(r)); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "unpaused"})
}

type settingRequest struct {
	Value string `json:"value"`
}

func (s *APIServer) settingsHandler(w http.ResponseWriter, r *http.Request) {
	var body settingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	field := r.PathValue("field")
	who := caller(r)

	var err error
	switch field {
	case "input_asset":
		err = s.service.SetInputAsset(r.Context(), who, body.Value)
	case "output_asset":
		err = s.service.SetOutputAsset(r.Context(), who, body.Value)
	case "input_feed":
		err = s.service.SetInputFeed(who, body.Value)
	case "output_feed":
		err = s.service.SetOutputFeed(who, body.Value)
	case "venue":
		err = s.service.SetVenue(who, body.Value)
	case "fee_recipient":
		err = s.service.SetFeeRecipient(who, body.Value)
	case "token_recipient":
		err = s.service.SetTokenRecipient(who, body.Value)
	case "admin":
		err = s.service.TransferAdmin(who, body.Value)
	case "swap_fee_bps":
		err = s.setBps(who, body.Value, s.service.SetSwapFeeBps)
	case "deposit_fee_bps":
		err = s.setBps(who, body.Value, s.service.SetDepositFeeBps)
	case "min_expected_swap_bps":
		err = s.setBps(who, body.Value, s.service.SetMinExpectedSwapBps)
	case "withdrawal_delay_seconds":
		var seconds int64
		if seconds, err = strconv.ParseInt(body.Value, 10, 64); err == nil {
			err = s.service.SetWithdrawalDelay(who, time.Duration(seconds)*time.Second)
		}
	default:
		http.Error(w, fmt.Sprintf("unknown setting %q", field), http.StatusNotFound)
		return
	}

	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "updated", "field": field})
}

func (s *APIServer) setBps(who, value string, set func(string, uint32) error) error {
	bps, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid basis-point value %q: %w", value, err)
	}
	return set(who, uint32(bps))
}

type executeRequest struct {
	Method  string `json:"method"`
	Target  string `json:"target"`
	Payload string `json:"payload"`
}

type executeResponse struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

func (s *APIServer) executeHandler(w http.ResponseWriter, r *http.Request) {
	var body executeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Method == "" {
		body.Method = http.MethodPost
	}

	code, respBody, err := s.service.Execute(r.Context(), caller(r), body.Method, body.Target, []byte(body.Payload))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			s.writeError(w, err)
			return
		}
		// The destination's failure is the operation's outcome, not an
		// internal error of this API.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(executeResponse{StatusCode: code, Body: string(respBody)})
		return
	}
	writeJSON(w, executeResponse{StatusCode: code, Body: string(respBody)})
}
