package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/zabbix/zabbix-sub156/internal/store"
	"github.com/zabbix/zabbix-sub156/zbxexpr"
	"github.com/zabbix/zabbix-sub156/zbxexpr/constructor"
	"github.com/zabbix/zabbix-sub156/zbxexpr/evaluator"
	"github.com/zabbix/zabbix-sub156/zbxexpr/funccall"
	"github.com/zabbix/zabbix-sub156/zbxexpr/itemkey"
	"github.com/zabbix/zabbix-sub156/zbxexpr/macro"
	"github.com/zabbix/zabbix-sub156/zbxexpr/regexptest"
)

// maxBodyBytes caps request bodies; expressions are far smaller.
const maxBodyBytes = 1 << 20

type AppServer struct {
	store  store.Store
	logger *slog.Logger
	limits zbxexpr.Limits

	macros  *macro.FunctionMacroMatcher
	lld     *macro.BracketMacroMatcher
	builder *constructor.Constructor
	eval    *evaluator.Evaluator
	tester  *regexptest.Tester
}

type Option func(*AppServer)

func WithLogger(l *slog.Logger) Option {
	return func(s *AppServer) { s.logger = l }
}

// WithLimits bounds every request. The default is zbxexpr.StrictLimits.
func WithLimits(l zbxexpr.Limits) Option {
	return func(s *AppServer) { s.limits = l }
}

func NewAppServer(st store.Store, opts ...Option) *AppServer {
	s := &AppServer{store: st, logger: slog.Default(), limits: zbxexpr.StrictLimits()}
	for _, o := range opts {
		o(s)
	}
	s.macros = macro.NewFunctionMacroMatcher(itemkey.New(), funccall.New(), macro.WithLimits(s.limits))
	s.lld = macro.NewLLDMacroMatcher(macro.WithLimits(s.limits))
	s.builder = constructor.New(constructor.WithLimits(s.limits))
	s.eval = evaluator.New(evaluator.WithLimits(s.limits))
	s.tester = regexptest.New(regexptest.WithLimits(s.limits), regexptest.WithLogger(s.logger))
	return s
}

// RegisterRoutes wires HTTP handlers.
func (s *AppServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/macros/parse", s.handleParseMacros)
	mux.HandleFunc("/api/v1/triggers/regexp", s.handleBuildRegexpTrigger)
	mux.HandleFunc("/api/v1/triggers", s.handleListTriggers)
	mux.HandleFunc("/api/v1/triggers/", s.handleGetTrigger)
	mux.HandleFunc("/api/v1/expressions/evaluate", s.handleEvaluate)
	mux.HandleFunc("/api/v1/regexps/test", s.handleRegexpTest)
}

// Router returns a mux with all routes registered.
func (s *AppServer) Router() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// ---- Handlers ----

func (s *AppServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type functionMacroJSON struct {
	Pos      int    `json:"pos"`
	Macro    string `json:"macro"`
	Host     string `json:"host"`
	Key      string `json:"key"`
	Function string `json:"function"`
}

type lldMacroJSON struct {
	Pos   int    `json:"pos"`
	Macro string `json:"macro"`
	Name  string `json:"name"`
}

type parsedMacros struct {
	Functions []functionMacroJSON `json:"functions"`
	LLD       []lldMacroJSON      `json:"lld"`
}

func (s *AppServer) parseMacros(text string) (parsedMacros, error) {
	out := parsedMacros{Functions: []functionMacroJSON{}, LLD: []lldMacroJSON{}}
	fms, err := s.macros.FindAll(text)
	if err != nil {
		return out, err
	}
	for _, m := range fms {
		out.Functions = append(out.Functions, functionMacroJSON{Pos: m.Pos, Macro: m.Match, Host: m.Host, Key: m.Item, Function: m.Function})
	}
	lms, err := s.lld.FindAll(text)
	if err != nil {
		return out, err
	}
	for _, m := range lms {
		out.LLD = append(out.LLD, lldMacroJSON{Pos: m.Pos, Macro: m.Match, Name: m.Name})
	}
	return out, nil
}

func (s *AppServer) handleParseMacros(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.parseMacros(req.Text)
	if err != nil {
		s.writeExprErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type regexpTriggerReq struct {
	Host        string                 `json:"host"`
	Key         string                 `json:"key"`
	Expressions []constructor.Fragment `json:"expressions"`
	Save        bool                   `json:"save"`
}

func (req regexpTriggerReq) validate() error {
	if strings.TrimSpace(req.Host) == "" {
		return errors.New("host is required")
	}
	if strings.TrimSpace(req.Key) == "" {
		return errors.New("key is required")
	}
	return nil
}

func (s *AppServer) handleBuildRegexpTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req regexpTriggerReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	expr, err := s.builder.Build(req.Host, req.Key, req.Expressions)
	if err != nil {
		s.writeExprErr(w, err)
		return
	}

	resp := map[string]any{"expression": expr}
	if req.Save {
		id, err := s.store.Save(r.Context(), store.Record{Host: req.Host, Key: req.Key, Expression: expr, Source: "api"})
		if err != nil {
			s.logger.Error("save trigger expression", slog.String("host", req.Host), slog.String("key", req.Key), slog.Any("error", err))
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		resp["id"] = id
		s.logger.Info("trigger expression saved", slog.Int64("id", id), slog.String("host", req.Host), slog.String("key", req.Key))
	}
	writeJSON(w, http.StatusOK, resp)
}

type triggerJSON struct {
	store.Record
	Macros []functionMacroJSON `json:"macros"`
}

func (s *AppServer) withMacros(rec store.Record) triggerJSON {
	out := triggerJSON{Record: rec, Macros: []functionMacroJSON{}}
	parsed, err := s.parseMacros(rec.Expression)
	if err != nil {
		s.logger.Warn("stored expression does not parse", slog.Int64("id", rec.ID), slog.Any("error", err))
		return out
	}
	out.Macros = parsed.Functions
	return out
}

func (s *AppServer) handleListTriggers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	recs, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]triggerJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.withMacros(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *AppServer) handleGetTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/v1/triggers/"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("invalid trigger id"))
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.withMacros(rec))
}

func (s *AppServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Expression string                       `json:"expression"`
		Values     map[string]evaluator.Literal `json:"values"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	x, err := s.eval.Compile(req.Expression)
	if err != nil {
		s.writeExprErr(w, err)
		return
	}
	res, err := x.Eval(req.Values)
	if err != nil {
		s.writeExprErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res, "placeholders": x.Placeholders()})
}

func (s *AppServer) handleRegexpTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		regexpTriggerReq
		TestString string `json:"test_string"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.tester.Run(req.Host, req.Key, req.Expressions, req.TestString)
	if err != nil {
		s.writeExprErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---- Helpers ----

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return false
	}
	return true
}

// writeExprErr reports *zbxexpr.Error as 422 with its kind and position;
// anything else is an internal error.
func (s *AppServer) writeExprErr(w http.ResponseWriter, err error) {
	var zerr *zbxexpr.Error
	if !errors.As(err, &zerr) {
		s.logger.Error("request failed", slog.Any("error", err))
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	body := map[string]any{"error": err.Error(), "kind": zerr.Kind.String()}
	if zerr.Pos >= 0 {
		body["position"] = zerr.Pos
	}
	if zerr.Token != "" {
		body["token"] = zerr.Token
	}
	writeJSON(w, http.StatusUnprocessableEntity, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", slog.Any("error", err))
	}
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
