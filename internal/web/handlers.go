package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/core"
	"github.com/JonMunkholm/royalty/internal/entitlement"
)

var (
	errNoFile      = errors.New("no file provided")
	errNoPrincipal = errors.New("forbidden: no principal")
	errInvalidForm = errors.New("file too large or invalid form")
)

// LayoutInfo is the JSON form of a sheet layout.
type LayoutInfo struct {
	Kind       catalog.Kind `json:"kind"`
	Label      string       `json:"label"`
	Columns    []string     `json:"columns"`
	Importable bool         `json:"importable"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.Limiter().Status(),
	})
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	layouts := core.Layouts()
	out := make([]LayoutInfo, len(layouts))
	for i, l := range layouts {
		out[i] = LayoutInfo{Kind: l.Kind, Label: l.Label, Columns: l.Columns, Importable: l.Importable}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	k, err := catalog.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	data, err := s.service.Template(k)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeCSV(w, string(k)+"_template.csv", data)
}

// handleImport reads a multipart form with the sheet in "file" and, for
// Contracts, optional term sheets in "terms_<list>". The tenant comes from
// the "tenant" form value, defaulting to the principal's own tenant.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	k, err := catalog.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondError(w, r, errInvalidForm, http.StatusBadRequest)
		return
	}

	data, fileName, err := formFile(r, "file")
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	req := core.ImportRequest{
		Kind:     k,
		Tenant:   tenantParam(r, p),
		FileName: fileName,
		Data:     data,
	}
	for _, l := range catalog.TermLists {
		terms, _, err := formFile(r, "terms_"+string(l))
		if errors.Is(err, errNoFile) {
			continue
		}
		if err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
		if req.Terms == nil {
			req.Terms = make(map[catalog.TermList][]byte)
		}
		req.Terms[l] = terms
	}

	result, err := s.service.Import(r.Context(), p, req)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	k, err := catalog.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	data, err := s.service.Export(r.Context(), p, k, tenantParam(r, p))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeCSV(w, string(k)+"s.csv", data)
}

func (s *Server) handleExportTerms(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	l, err := catalog.ParseTermList(chi.URLParam(r, "list"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	data, err := s.service.ExportTerms(r.Context(), p, tenantParam(r, p), l)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeCSV(w, "contract_"+string(l)+"_terms.csv", data)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	k, err := catalog.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	e, err := s.service.Get(r.Context(), p, k, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// principal returns the request's principal or writes a 403.
func principal(w http.ResponseWriter, r *http.Request) (entitlement.Principal, bool) {
	p, ok := core.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, r, errNoPrincipal, http.StatusForbidden)
	}
	return p, ok
}

func tenantParam(r *http.Request, p entitlement.Principal) string {
	if t := r.FormValue("tenant"); t != "" {
		return t
	}
	return p.TenantID
}

func formFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", errNoFile
	}
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}
