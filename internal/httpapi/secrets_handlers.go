package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"jobfunnel-engine/internal/config"
	"jobfunnel-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setSecretReq struct {
	Value string `json:"value"`
}

func (h SecretsHandler) SetIMAPPassword(w http.ResponseWriter, r *http.Request) {
	var req setSecretReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.Set(secrets.IMAPKeyringAccount(cfg), req.Value); err != nil {
		http.Error(w, "failed to store password: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) SetTelegramToken(w http.ResponseWriter, r *http.Request) {
	var req setSecretReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.Set(cfg.Telegram.KeyringAccount, req.Value); err != nil {
		http.Error(w, "failed to store token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
