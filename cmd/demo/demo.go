package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/brunokim/ribbon/internal/logging"
	"github.com/brunokim/ribbon/ribbon"
	"github.com/brunokim/ribbon/session"
)

var cli struct {
	Port      int    `default:"8009" help:"Port to run server."`
	LogLevel  string `default:"info" enum:"debug,info,warn,error" help:"Minimum level of logged messages (${enum})."`
	LogFormat string `default:"text" enum:"json,text" help:"Log output format (${enum})."`
	Journal   string `type:"path" help:"File to dump loads and edits in JSONL format."`
	IDs       string `name:"ids" default:"sequence" enum:"sequence,random,content" help:"How new versions are named (${enum})."`
}

// -----

func main() {
	kong.Parse(&cli,
		kong.Name("demo"),
		kong.Description("Serves versioned documents whose edits keep links to their sources."),
		kong.UsageOnError())

	logger, err := newLogger(cli.LogLevel, cli.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	opts := session.Options{IDs: newIDs(cli.IDs), Logger: logger}
	if cli.Journal != "" {
		f, err := os.Create(cli.Journal)
		if err != nil {
			logger.Error("opening journal", "path", cli.Journal, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		opts.Journal = session.NewJournal(f)
	}
	store := session.New(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, fmt.Sprintf(":%d", cli.Port), store, logger); err != nil {
		logger.Error("server stopped", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("closing journal", "error", err)
	}
}

func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	l, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return logging.New(l, f, w), nil
}

func newIDs(kind string) ribbon.IDAllocator {
	switch kind {
	case "random":
		return ribbon.RandomIDs{}
	case "content":
		return ribbon.ContentIDs{}
	}
	return &ribbon.Sequence{}
}

func serve(ctx context.Context, addr string, store *session.Store, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", addr)
		errs <- srv.ListenAndServe()
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMux(store *session.Store, logger *slog.Logger) http.Handler {
	a := api{s: store, logger: logger}
	mux := http.NewServeMux()
	mux.Handle("POST /load", loadHTTPHandler{a})
	mux.Handle("POST /edit", editHTTPHandler{a})
	mux.Handle("GET /history", historyHTTPHandler{a})
	mux.Handle("GET /read", readHTTPHandler{a})
	return logging.Middleware(logger, mux)
}

// -----

type linkJSON struct {
	Origin string `json:"origin"`
	Dest   string `json:"dest"`
}

type docJSON struct {
	ID     ribbon.ID  `json:"id"`
	Basis  ribbon.ID  `json:"basis,omitempty"`
	Len    int        `json:"len"`
	Blocks []string   `json:"blocks"`
	Links  []linkJSON `json:"links,omitempty"`
}

func links(ls ribbon.LinkSet) []linkJSON {
	var result []linkJSON
	for _, l := range ls {
		result = append(result, linkJSON{Origin: l.Origin.Token(), Dest: l.Dest.Token()})
	}
	return result
}

func tokens(addrs []ribbon.Address) []string {
	result := make([]string, len(addrs))
	for i, a := range addrs {
		result[i] = a.Token()
	}
	return result
}

func newDocJSON(doc *ribbon.Document) docJSON {
	blocks := doc.Flatten()
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = fmt.Sprint(b)
	}
	return docJSON{
		ID:     doc.ID(),
		Basis:  doc.Basis(),
		Len:    doc.Len(),
		Blocks: texts,
		Links:  links(doc.Provenance().Normalize()),
	}
}

// api holds what every handler needs.
type api struct {
	s      *session.Store
	logger *slog.Logger
}

func (a api) writeJSON(w http.ResponseWriter, req *http.Request, status int, x interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(x); err != nil {
		logging.FromContext(req.Context(), a.logger).Error("writing response", "path", req.URL.Path, "error", err)
	}
}

func (a api) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrUnknownDocument):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrStaleBase), errors.Is(err, session.ErrDuplicateID):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNoChange):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrInvalidEdit), errors.Is(err, ribbon.ErrOutOfRange),
		errors.Is(err, ribbon.ErrUnsupportedTarget), errors.Is(err, ribbon.ErrMalformedReference):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	a.writeJSON(w, req, status, map[string]string{"error": err.Error()})
}

// -----

type loadRequest struct {
	Text string `json:"text"`
}

type loadHTTPHandler struct {
	api
}

func (h loadHTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	loadReq := &loadRequest{}
	if err := json.NewDecoder(req.Body).Decode(loadReq); err != nil {
		h.writeError(w, req, fmt.Errorf("%w: parsing body in /load: %v", session.ErrInvalidEdit, err))
		return
	}
	doc, err := h.s.Load(req.Context(), loadReq.Text)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.writeJSON(w, req, http.StatusCreated, newDocJSON(doc))
}

// -----

type editRequest struct {
	Base ribbon.ID `json:"base"`
	session.Edit
}

type editHTTPHandler struct {
	api
}

func (h editHTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	editReq := &editRequest{}
	if err := json.NewDecoder(req.Body).Decode(editReq); err != nil {
		h.writeError(w, req, fmt.Errorf("%w: parsing body in /edit: %v", session.ErrInvalidEdit, err))
		return
	}
	doc, err := h.s.Apply(req.Context(), editReq.Base, editReq.Edit)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.writeJSON(w, req, http.StatusOK, newDocJSON(doc))
}

// -----

type historyResponse struct {
	Versions []docJSON  `json:"versions"`
	Trace    []linkJSON `json:"trace"`
	InLatest []string   `json:"inLatest"`
	InRoot   []string   `json:"inRoot"`
}

type historyHTTPHandler struct {
	api
}

func (h historyHTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	id := ribbon.ID(req.URL.Query().Get("id"))
	history, err := h.s.History(id)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	resp := historyResponse{
		Versions: make([]docJSON, len(history)),
		Trace:    links(ribbon.ComposeChain(history)),
	}
	for i, doc := range history {
		resp.Versions[i] = newDocJSON(doc)
	}
	inLatest, inRoot := ribbon.Survivors(history)
	resp.InLatest, resp.InRoot = tokens(inLatest), tokens(inRoot)
	h.writeJSON(w, req, http.StatusOK, resp)
}

// -----

type readHTTPHandler struct {
	api
}

func (h readHTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	id := ribbon.ID(q.Get("id"))
	doc, err := h.s.Get(id)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	start, end := 0, doc.Len()
	if s := q.Get("start"); s != "" {
		if start, err = strconv.Atoi(s); err != nil {
			h.writeError(w, req, fmt.Errorf("%w: start %q", ribbon.ErrOutOfRange, s))
			return
		}
	}
	if e := q.Get("end"); e != "" {
		if end, err = strconv.Atoi(e); err != nil {
			h.writeError(w, req, fmt.Errorf("%w: end %q", ribbon.ErrOutOfRange, e))
			return
		}
	}
	text, err := h.s.Read(id, start, end)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, text); err != nil {
		logging.FromContext(req.Context(), h.logger).Error("writing response", "path", req.URL.Path, "error", err)
	}
}
