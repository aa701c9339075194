package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/mistermingming/ProcurementManagement/engine"
	"github.com/mistermingming/ProcurementManagement/util/log"
	sserver "github.com/mistermingming/ProcurementManagement/util/server"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const maxBodyLen = 1024 * 1024 * 10

func httpReadBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBodyLen))
}

func httpSendReply(w http.ResponseWriter, status int, reply interface{}) {
	data, err := json.Marshal(reply)
	if err != nil {
		log.Error("marshal http reply error(%v)", err)
		sserver.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json;charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Error("send http reply error(%v)", err)
	}
}

func httpSendOk(w http.ResponseWriter, data interface{}) {
	httpSendReply(w, http.StatusOK, &Response{Code: 0, Message: "ok", Data: data})
}

// httpSendErr maps an engine error to its stable outward error string and
// HTTP status. Caller errors get 400, missing entities 404, write races 409.
func httpSendErr(w http.ResponseWriter, err error) {
	code := engine.Code(err)
	var status int
	switch code {
	case "table_not_found", "not_found":
		status = http.StatusNotFound
	case "integrity_error":
		status = http.StatusConflict
	case "internal_error":
		status = http.StatusInternalServerError
		log.Error("internal error: %v", err)
	default:
		status = http.StatusBadRequest
	}
	if status != http.StatusInternalServerError && log.IsEnableDebug() {
		log.Debug("request rejected: %s (%v)", code, err)
	}
	httpSendReply(w, status, &Response{Code: 1, Message: code})
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	table := r.FormValue("table")
	rows, err := s.store.List(r.Context(), table)
	if err != nil {
		httpSendErr(w, err)
		return
	}
	httpSendOk(w, rows)
}

func (s *Server) handleReplaceRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sserver.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	table := r.FormValue("table")
	body, err := httpReadBody(r)
	if err != nil {
		log.Error("read replace body: %v", err)
		httpSendErr(w, engine.ErrInvalidRows)
		return
	}
	var rows []engine.RowValues
	if err = json.Unmarshal(body, &rows); err != nil {
		httpSendErr(w, engine.ErrInvalidRows)
		return
	}

	inserted, err := s.store.ReplaceAll(r.Context(), table, rows)
	if err != nil {
		httpSendErr(w, err)
		return
	}
	httpSendOk(w, map[string]int{"inserted": inserted})
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sserver.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	table := r.FormValue("table")
	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpSendErr(w, engine.ErrRowNotFound)
		return
	}

	found, err := s.store.DeleteRow(r.Context(), table, id)
	if err != nil {
		httpSendErr(w, err)
		return
	}
	if !found {
		httpSendErr(w, engine.ErrRowNotFound)
		return
	}
	httpSendOk(w, map[string]bool{"deleted": true})
}

func (s *Server) handleTableInfo(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.store.Registry().Lookup(r.FormValue("table"))
	if !ok {
		httpSendErr(w, engine.ErrTableNotFound)
		return
	}

	type columnInfo struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	type tableInfo struct {
		Name     string        `json:"name"`
		Columns  []*columnInfo `json:"columns"`
		SortBy   []string      `json:"sort_by"`
		ReadOnly bool          `json:"readonly"`
	}
	info := &tableInfo{
		Name:     schema.Name,
		SortBy:   schema.SortBy,
		ReadOnly: schema.ReadOnly,
	}
	for _, c := range schema.Columns {
		info.Columns = append(info.Columns, &columnInfo{Name: c.Name, Kind: kindName(c.Kind)})
	}
	httpSendOk(w, info)
}

func kindName(k engine.ColumnKind) string {
	switch k {
	case engine.ColPrice:
		return "price"
	case engine.ColRefValue:
		return "ref_value"
	case engine.ColRefID:
		return "ref_id"
	default:
		return "text"
	}
}

// handleOptions lists every configured table, fanned out on the worker pool.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	schemas := s.store.Registry().All()
	tasks := make([]*ListTask, 0, len(schemas))
	for _, schema := range schemas {
		task := GetListTask()
		task.init(s, schema.Name)
		if err := s.Submit(task); err != nil {
			PutListTask(task)
			// drain what was already submitted before replying
			for _, t := range tasks {
				t.Wait()
				PutListTask(t)
			}
			log.Error("submit list task failed, err[%v]", err)
			httpSendErr(w, err)
			return
		}
		tasks = append(tasks, task)
	}

	all := make(map[string][]engine.Row, len(schemas))
	var failed error
	for i, task := range tasks {
		err := task.Wait()
		if err == nil {
			all[schemas[i].Name] = task.rows
		} else if failed == nil {
			failed = err
		}
		PutListTask(task)
	}
	if failed != nil {
		log.Error("list task do failed, err[%v]", failed)
		httpSendErr(w, failed)
		return
	}
	httpSendOk(w, all)
}

func (s *Server) handleQuoteSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sserver.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := httpReadBody(r)
	if err != nil {
		log.Error("read quote body: %v", err)
		httpSendErr(w, engine.ErrInvalidRows)
		return
	}
	var payload struct {
		Customer string             `json:"customer"`
		Items    []engine.QuoteItem `json:"items"`
	}
	if err = json.Unmarshal(body, &payload); err != nil {
		httpSendErr(w, engine.ErrInvalidRows)
		return
	}

	quote, err := s.store.SubmitQuote(r.Context(), payload.Customer, payload.Items)
	if err != nil {
		httpSendErr(w, err)
		return
	}
	httpSendReply(w, http.StatusCreated, &Response{Code: 0, Message: "ok", Data: quote})
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.store.ListQuotes(r.Context())
	if err != nil {
		httpSendErr(w, err)
		return
	}
	httpSendOk(w, quotes)
}
