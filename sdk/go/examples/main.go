package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"AgentCoin-Sim/sdk/go/agentsim"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/agent/start", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(agentsim.AgentState{
			Status: "IDLE",
			Goal:   "Acquire 150 AGENT-COIN by trading data packets.",
		})
	})
	mux.HandleFunc("/api/v1/wallet", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(agentsim.Wallet{
			Balance: 100,
			Transactions: []agentsim.Transaction{{
				ID:          "tx-demo",
				Timestamp:   time.Now().UTC(),
				Description: "Initial balance",
				Amount:      100,
				Quality:     "NEUTRAL",
			}},
		})
	})
	mux.HandleFunc("/api/v1/log", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]agentsim.LogEntry{{
			ID:        "log-demo",
			Timestamp: time.Now().UTC(),
			Type:      "SYSTEM",
			Message:   "Agent started.",
		}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := agentsim.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := client.StartAgent(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("agent status=%s goal=%q\n", state.Status, state.Goal)

	wallet, err := client.Wallet(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("balance=%.2f transactions=%d\n", wallet.Balance, len(wallet.Transactions))

	entries, err := client.ActivityLog(ctx)
	if err != nil {
		panic(err)
	}
	for _, entry := range entries {
		fmt.Printf("[%s] %s\n", entry.Type, entry.Message)
	}
}
