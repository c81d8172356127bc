package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	tinytalk "github.com/tinylanders/tinytalk"
	"github.com/tinylanders/tinytalk/internal/ast"
	"github.com/tinylanders/tinytalk/internal/logging"
	"github.com/tinylanders/tinytalk/internal/observability"
)

func newServeCmd() *cobra.Command {
	var ruleFile string
	var addr string
	var metricsAddr string
	var logFormat string
	var softCap int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a rule file's scene over HTTP, with /metrics for observability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(ruleFile, addr, metricsAddr, logFormat, softCap)
		},
	}

	cmd.Flags().StringVar(&ruleFile, "rules", defaultRuleFile, "rule file to load")
	cmd.Flags().StringVar(&addr, "addr", defaultListenAddr, "HTTP listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", defaultMetricsAddr, "metrics HTTP listen address")
	cmd.Flags().StringVar(&logFormat, "log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().IntVar(&softCap, "soft-cap", defaultSoftCap, "soft iteration cap per drain")

	return cmd
}

func runServe(ruleFile, addr, metricsAddr, logFormat string, softCap int) error {
	logger := logging.Setup("tinytalk-serve", logFormat)

	tt, err := tinytalk.New(logger)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	tt.SetSoftCap(softCap)

	obs := observability.NewServer(metricsAddr)
	tt.SetMetrics(obs.Metrics())
	if err := obs.Start(); err != nil {
		return fmt.Errorf("serve: starting observability server: %w", err)
	}

	f, err := os.Open(ruleFile)
	if err != nil {
		return fmt.Errorf("serve: opening %s: %w", ruleFile, err)
	}
	results, err := tt.LoadRuleFile(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("serve: loading %s: %w", ruleFile, err)
	}
	for _, r := range results {
		if r.Err != nil {
			logger.Warn("rule discarded", "source", r.Source, "error", r.Err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/create", handleCreate(tt))
	mux.HandleFunc("/update", handleUpdate(tt))
	mux.HandleFunc("/drain", handleDrain(tt))
	mux.HandleFunc("/scene", handleScene(tt))

	logger.Info("tinytalk serving", "addr", addr, "metrics_addr", obs.Addr(), "rules", ruleFile)
	return http.ListenAndServe(addr, mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type mutationRequest struct {
	ID    string         `json:"id"`
	Tags  []string       `json:"tags,omitempty"`
	Attrs map[string]any `json:"attrs"`
}

// decodeAttrs lowers a JSON attrs object into ast.Values. encoding/json
// decodes a JSON number into a float64 and everything else into its
// natural Go type, so the switch below covers exactly what Decode can
// produce for an "any" field.
func decodeAttrs(raw map[string]any) map[string]ast.Value {
	attrs := make(map[string]ast.Value, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case float64:
			attrs[k] = ast.Number(val)
		case bool:
			attrs[k] = ast.Bool(val)
		case string:
			attrs[k] = ast.Str(val)
		default:
			attrs[k] = ast.Str(fmt.Sprintf("%v", val))
		}
	}
	return attrs
}

func handleCreate(tt *tinytalk.TinyTalk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req mutationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.ID == "" {
			writeError(w, http.StatusBadRequest, "missing field: id")
			return
		}
		obj := tt.CreateObject(req.ID, req.Tags, decodeAttrs(req.Attrs))
		writeJSON(w, http.StatusOK, obj)
	}
}

func handleUpdate(tt *tinytalk.TinyTalk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req mutationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		obj, err := tt.UpdateObject(req.ID, decodeAttrs(req.Attrs))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, obj)
	}
}

func handleDrain(tt *tinytalk.TinyTalk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ran := tt.Drain()
		writeJSON(w, http.StatusOK, map[string]bool{"ran": ran})
	}
}

func handleScene(tt *tinytalk.TinyTalk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := tt.WriteRenderJSON(w); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}
