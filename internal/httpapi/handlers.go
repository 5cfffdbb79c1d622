package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/cdubvdub/fpl-power-meter-api/internal/jobs"
	"github.com/cdubvdub/fpl-power-meter-api/internal/portal"
	"github.com/cdubvdub/fpl-power-meter-api/internal/rows"
	"github.com/cdubvdub/fpl-power-meter-api/internal/store"
)

type credentialsRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	TaxID         string `json:"tax_id"`
	RequestorName string `json:"requestor_name"`
}

func (c *credentialsRequest) validate() error {
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	if c.TaxID == "" {
		return fmt.Errorf("tax_id is required")
	}
	return nil
}

func (c *credentialsRequest) params() jobs.SessionParams {
	return jobs.SessionParams{
		Creds:         portal.Credentials{Username: c.Username, Password: c.Password},
		TaxID:         c.TaxID,
		RequestorName: c.RequestorName,
	}
}

type singleRequest struct {
	credentialsRequest
	Address string `json:"address"`
	Unit    string `json:"unit"`
}

type singleResponse struct {
	Address          string     `json:"address"`
	Unit             string     `json:"unit,omitempty"`
	MeterStatus      string     `json:"meter_status"`
	PropertyStatus   string     `json:"property_status"`
	StatusCapturedAt *time.Time `json:"status_captured_at,omitempty"`
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	var req singleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Address == "" {
		s.writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	row := rows.Normalize(req.Address)
	if req.Unit != "" {
		row.Unit = req.Unit
	}

	res, err := s.sched.LookupSingle(r.Context(), req.params(), row)
	if err != nil {
		s.log.Errorf("single lookup failed for %s: %v", row.Address, err)
		s.writeError(w, http.StatusBadGateway, "lookup failed: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, singleResponse{
		Address:          row.Address,
		Unit:             row.Unit,
		MeterStatus:      res.MeterStatus,
		PropertyStatus:   res.PropertyStatus,
		StatusCapturedAt: res.StatusCapturedAt,
	})
}

type batchRequest struct {
	credentialsRequest
	Addresses []string `json:"addresses"`
}

type batchResponse struct {
	JobID  string          `json:"job_id"`
	Status store.JobStatus `json:"status"`
	Total  int             `json:"total"`
}

// handleBatch accepts either a JSON body with an addresses list or a
// multipart form carrying a CSV file plus credential fields.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var creds credentialsRequest
	var batch []rows.NormalizedRow

	contentType := r.Header.Get("Content-Type")
	if isMultipart(contentType) {
		var err error
		creds, batch, err = s.parseMultipartBatch(r)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		creds = req.credentialsRequest
		for _, raw := range req.Addresses {
			if row := rows.Normalize(raw); row.Address != "" {
				batch = append(batch, row)
			}
		}
	}

	if err := creds.validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.sched.Submit(r.Context(), creds.params(), batch)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrNoRows), errors.Is(err, jobs.ErrBatchTooLarge):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Errorf("batch submit failed: %v", err)
			s.writeError(w, http.StatusInternalServerError, "failed to create job")
		}
		return
	}

	s.writeJSON(w, http.StatusAccepted, batchResponse{
		JobID:  job.JobID,
		Status: job.Status,
		Total:  job.Total,
	})
}

func isMultipart(contentType string) bool {
	return strings.HasPrefix(contentType, "multipart/form-data")
}

func (s *Server) parseMultipartBatch(r *http.Request) (credentialsRequest, []rows.NormalizedRow, error) {
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		return credentialsRequest{}, nil, fmt.Errorf("invalid multipart form")
	}
	creds := credentialsRequest{
		Username:      r.FormValue("username"),
		Password:      r.FormValue("password"),
		TaxID:         r.FormValue("tax_id"),
		RequestorName: r.FormValue("requestor_name"),
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return creds, nil, fmt.Errorf("csv file is required")
	}
	defer file.Close()

	batch, err := ParseRows(file)
	if err != nil {
		return creds, nil, fmt.Errorf("failed to parse csv: %v", err)
	}
	return creds, batch, nil
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.log.Errorf("failed to load job %s: %v", jobID, err)
		s.writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	results, err := s.store.ListResults(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.log.Errorf("failed to load results for %s: %v", jobID, err)
		s.writeError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  jobID,
		"results": results,
	})
}
