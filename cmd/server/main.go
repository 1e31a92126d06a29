package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/walletsys/wallet-ledger/internal/config"
	"github.com/walletsys/wallet-ledger/internal/events/kafka"
	eventsmem "github.com/walletsys/wallet-ledger/internal/events/memory"
	"github.com/walletsys/wallet-ledger/internal/interfaces"
	"github.com/walletsys/wallet-ledger/internal/ledger"
	"github.com/walletsys/wallet-ledger/internal/logging"
	walletprom "github.com/walletsys/wallet-ledger/internal/metrics/prometheus"
	"github.com/walletsys/wallet-ledger/internal/storage/file"
	"github.com/walletsys/wallet-ledger/internal/storage/memory"
	"github.com/walletsys/wallet-ledger/internal/storage/postgres"
	"github.com/walletsys/wallet-ledger/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	store, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatal("building account store", zap.Error(err))
	}
	if err := store.LoadAll(context.Background()); err != nil {
		logger.Fatal("loading accounts", zap.Error(err))
	}

	var publisher interfaces.EventPublisher = eventsmem.NewPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	registry := prometheus.NewRegistry()
	collector := walletprom.NewCollector("wallet", registry)

	svc := ledger.NewService(store,
		ledger.WithLogger(logger),
		ledger.WithPublisher(publisher),
		ledger.WithCollector(collector),
	)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			OwnerID string `json:"owner_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
			http.Error(w, "owner_id is a mandatory field", http.StatusBadRequest)
			return
		}
		acct, err := svc.Provision(r.Context(), req.OwnerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, accountResponse(acct))
	})

	mux.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ownerID := r.URL.Query().Get("owner_id")
		if ownerID == "" {
			http.Error(w, "owner_id is a mandatory field", http.StatusBadRequest)
			return
		}
		acct, err := svc.Account(ownerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, accountResponse(acct))
	})

	mux.HandleFunc("/accounts/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ownerID := r.URL.Query().Get("owner_id")
		if ownerID == "" {
			http.Error(w, "owner_id is a mandatory field", http.StatusBadRequest)
			return
		}
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "limit must be an integer", http.StatusBadRequest)
				return
			}
			limit = n
		}
		entries, err := svc.History(ownerID, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryResponse{
				ID:               e.ID,
				Kind:             string(e.Kind),
				Amount:           e.Amount,
				Note:             e.Note,
				CreatedAt:        e.CreatedAt,
				ResultingBalance: e.ResultingBalance,
			})
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("/deposits", func(w http.ResponseWriter, r *http.Request) {
		handleMutation(w, r, func(ctx context.Context, req mutationRequest) (decimal.Decimal, error) {
			return svc.Deposit(ctx, req.OwnerID, req.Amount, req.Note)
		})
	})

	mux.HandleFunc("/withdrawals", func(w http.ResponseWriter, r *http.Request) {
		handleMutation(w, r, func(ctx context.Context, req mutationRequest) (decimal.Decimal, error) {
			return svc.Withdraw(ctx, req.OwnerID, req.Amount, req.Note)
		})
	})

	mux.HandleFunc("/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			FromOwner string          `json:"from_owner"`
			ToOwner   string          `json:"to_owner"`
			Amount    decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		tr, err := svc.Transfer(r.Context(), req.FromOwner, req.ToOwner, req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			TransferID  string          `json:"transfer_id"`
			FromAccount string          `json:"from_account"`
			ToAccount   string          `json:"to_account"`
			Amount      decimal.Decimal `json:"amount"`
			State       string          `json:"state"`
			CreatedAt   time.Time       `json:"created_at"`
		}{tr.ID, tr.FromAccount, tr.ToAccount, tr.Amount, string(tr.State), tr.CreatedAt})
	})

	logger.Info("starting server", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, mux); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildStore(cfg config.Config, logger *zap.Logger) (interfaces.AccountStore, error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	case cfg.DataDir != "":
		opts := []file.Option{file.WithLogger(logger)}
		if cfg.StrictRecords {
			opts = append(opts, file.WithStrictDecode())
		}
		return file.NewStore(cfg.DataDir, opts...)
	default:
		logger.Warn("no data dir or database configured, accounts will not survive restart")
		return memory.NewStore(), nil
	}
}

type mutationRequest struct {
	OwnerID string          `json:"owner_id"`
	Amount  decimal.Decimal `json:"amount"`
	Note    string          `json:"note"`
}

func handleMutation(w http.ResponseWriter, r *http.Request, fn func(context.Context, mutationRequest) (decimal.Decimal, error)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	balance, err := fn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OwnerID string          `json:"owner_id"`
		Balance decimal.Decimal `json:"balance"`
	}{req.OwnerID, balance})
}

type entryResponse struct {
	ID               string          `json:"id"`
	Kind             string          `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	Note             string          `json:"note"`
	CreatedAt        time.Time       `json:"created_at"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
}

func accountResponse(a *wallet.Account) any {
	return struct {
		AccountID string          `json:"account_id"`
		OwnerID   string          `json:"owner_id"`
		Balance   decimal.Decimal `json:"balance"`
	}{a.AccountID, a.OwnerID, a.Balance}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var pErr *wallet.PersistenceError
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, wallet.ErrDuplicateOwner):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrSameOwner),
		errors.Is(err, wallet.ErrInvalidOwner):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &pErr):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
