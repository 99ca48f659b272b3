package web

import (
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"

	corestatus "github.com/roadlog/roadlog/pkg/core/status"
	"github.com/roadlog/roadlog/pkg/errors"
	"github.com/roadlog/roadlog/pkg/ingest"
	ingeststatus "github.com/roadlog/roadlog/pkg/ingest/status"
	"github.com/roadlog/roadlog/pkg/model"

	jsoniter "github.com/json-iterator/go"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// request body and listing bounds
const (
	maxDeltaBytes   = 64 << 20  // a save is a viewport's worth of edits
	maxUploadBytes  = 512 << 20 // a full replacement baseline
	changesDefault  = 20
	changesCap      = 100
	activityDefault = 50
	activityCap     = 200
)

// the region and road classes of the stock baseline reset
var (
	defaultResetBBox    = ingest.BBox{South: 50.7, West: 3.2, North: 53.7, East: 7.2}
	defaultResetClasses = []string{"motorway", "trunk", "primary"}
)

func respondJSON(w http.ResponseWriter, httpStatus int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(httpStatus)
	_ = codec.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, httpStatus int, msg string) {
	respondJSON(w, httpStatus, map[string]string{"error": msg})
}

func limitParam(r *http.Request, fallback, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

// HandleHealth reports liveness
func (srv *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// HandleMap serves the merged dataset: baseline plus all logged changes
func (srv *Server) HandleMap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merged, err := srv.ledger.Snapshot(r.Context())
		if err != nil {
			srv.l.Error("snapshot failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "cannot reconstruct dataset")
			return
		}
		b, err := merged.MarshalJSON()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "cannot encode dataset")
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(b)
	}
}

// HandleSave appends the posted feature collection to the change log on
// behalf of the authenticated user.
func (srv *Server) HandleSave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r, maxDeltaBytes)
		if err != nil {
			respondError(w, http.StatusBadRequest, "cannot read request body")
			return
		}
		delta, err := model.UnmarshalFeatureCollection(body)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}

		token, err := srv.ledger.Submit(r.Context(), UserFromContext(r.Context()), delta)
		switch {
		case err == nil:
		case errors.Is(err, corestatus.ErrEmptyDelta), errors.Is(err, corestatus.ErrNoAuthor):
			respondError(w, http.StatusBadRequest, err.Error())
			return
		default:
			srv.l.Error("save failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "cannot persist change")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "token": token})
	}
}

// HandleChanges lists the most recent change entries across all users
func (srv *Server) HandleChanges() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := srv.ledger.RecentChanges(r.Context(), limitParam(r, changesDefault, changesCap))
		if err != nil {
			srv.l.Error("changes listing failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "cannot list changes")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
	}
}

// HandleUserActivity reports one user's save counter and recent entries
func (srv *Server) HandleUserActivity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			respondError(w, http.StatusBadRequest, "Missing query parameter: name")
			return
		}
		activity, err := srv.ledger.UserActivity(r.Context(), name, limitParam(r, activityDefault, activityCap))
		if err != nil {
			srv.l.Error("user activity failed", zap.String("name", name), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "cannot query user activity")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"user": map[string]interface{}{
				"username":  activity.Username,
				"saveCount": activity.SaveCount,
			},
			"count":   len(activity.Changes),
			"entries": activity.Changes,
		})
	}
}

// HandleImportBBox fetches roads in a bounding box from the map provider and
// returns them as GeoJSON, without touching the dataset. Clients use this to
// seed edits from current upstream data.
func (srv *Server) HandleImportBBox() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("bbox")
		if raw == "" {
			respondError(w, http.StatusBadRequest, "Missing bbox")
			return
		}
		bbox, err := ingest.ParseBBox(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid bbox")
			return
		}
		classes := ingest.FilterClasses(strings.Split(r.URL.Query().Get("classes"), ","))

		fc, err := srv.importer.Roads(r.Context(), bbox, classes)
		if err != nil {
			srv.l.Error("bbox import failed", zap.String("bbox", bbox.String()), zap.Error(err))
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"ok":           true,
			"bbox":         []float64{bbox.South, bbox.West, bbox.North, bbox.East},
			"classes":      classes,
			"featureCount": len(fc.Features),
			"data":         fc,
		})
	}
}

// HandleExport downloads the merged dataset as an attachment
func (srv *Server) HandleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merged, filename, err := srv.ledger.Export(r.Context())
		if err != nil {
			srv.l.Error("export failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "cannot reconstruct dataset")
			return
		}
		b, err := merged.MarshalJSON()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "cannot encode dataset")
			return
		}
		w.Header().Set("Content-Type", "application/geo+json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		_, _ = w.Write(b)
	}
}

// HandleUpload checkpoints the posted feature collection as the new
// baseline: the change log is cleared and save counters are reset.
func (srv *Server) HandleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r, maxUploadBytes)
		if err != nil {
			respondError(w, http.StatusBadRequest, "cannot read request body")
			return
		}
		dataset, err := model.UnmarshalFeatureCollection(body)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		srv.checkpoint(w, r, dataset)
	}
}

// HandleResetBaseline replaces the baseline with fresh provider data and
// clears the log. The region and road classes may be posted as JSON; absent
// a body the stock region is fetched.
func (srv *Server) HandleResetBaseline() http.HandlerFunc {
	type resetRequest struct {
		BBox    string   `json:"bbox"`
		Classes []string `json:"classes"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		bbox := defaultResetBBox
		classes := defaultResetClasses

		body, err := readBody(r, 1<<20)
		if err == nil && len(body) > 0 {
			var req resetRequest
			if uerr := codec.Unmarshal(body, &req); uerr != nil {
				respondError(w, http.StatusBadRequest, "Invalid JSON")
				return
			}
			if req.BBox != "" {
				bbox, err = ingest.ParseBBox(req.BBox)
				if err != nil {
					respondError(w, http.StatusBadRequest, "Invalid bbox")
					return
				}
			}
			if len(req.Classes) > 0 {
				classes = ingest.FilterClasses(req.Classes)
			}
		}

		dataset, err := srv.importer.Source(bbox, classes).Roads(r.Context())
		if err != nil {
			srv.l.Error("baseline fetch failed", zap.Error(err))
			httpStatus := http.StatusInternalServerError
			if errors.Is(err, ingeststatus.ErrMirrors) {
				httpStatus = http.StatusBadGateway
			}
			respondError(w, httpStatus, err.Error())
			return
		}
		srv.checkpoint(w, r, dataset)
	}
}

func readBody(r *http.Request, maxBytes int64) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()
	return ioutil.ReadAll(io.LimitReader(r.Body, maxBytes))
}

func (srv *Server) checkpoint(w http.ResponseWriter, r *http.Request, dataset *geojson.FeatureCollection) {
	result, err := srv.ledger.Checkpoint(r.Context(), dataset)
	switch {
	case err == nil:
	case errors.Is(err, corestatus.ErrDuplicateID), errors.Is(err, corestatus.ErrNilBaseline):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	default:
		srv.l.Error("checkpoint failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "cannot checkpoint baseline")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":             true,
		"featureCount":   result.FeatureCount,
		"changesCleared": result.ChangesCleared,
		"countersReset":  result.CountersReset,
	})
}
