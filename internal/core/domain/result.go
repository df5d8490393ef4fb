package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// BuildResult is the outcome of one node of a build.
type BuildResult struct {
	ID     PackageID
	Status VertexStatus
	Err    error
	// FailedAncestor names the failed dependency of a skipped node.
	FailedAncestor PackageID
	Diagnostic     string
	Duration       time.Duration
	InstallPath    string
}

// BuildReport collects the results of a build run.
type BuildReport struct {
	Results []BuildResult
}

// Add appends a result and keeps the report sorted by identity.
func (r *BuildReport) Add(res BuildResult) {
	r.Results = append(r.Results, res)
	slices.SortStableFunc(r.Results, func(a, b BuildResult) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
}

// Result returns the result for id.
func (r *BuildReport) Result(id PackageID) (BuildResult, bool) {
	for _, res := range r.Results {
		if res.ID == id {
			return res, true
		}
	}
	return BuildResult{}, false
}

// OK reports whether every node succeeded or was cached.
func (r *BuildReport) OK() bool {
	for _, res := range r.Results {
		if res.Status != VertexStatusCompleted && res.Status != VertexStatusCached {
			return false
		}
	}
	return true
}

// WithStatus returns the results that ended in status.
func (r *BuildReport) WithStatus(status VertexStatus) []BuildResult {
	var out []BuildResult
	for _, res := range r.Results {
		if res.Status == status {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the failed results.
func (r *BuildReport) Failed() []BuildResult {
	return r.WithStatus(VertexStatusFailed)
}

// Skipped returns the skipped results.
func (r *BuildReport) Skipped() []BuildResult {
	return r.WithStatus(VertexStatusSkipped)
}

// Err aggregates every failure of the run, or returns nil when the run
// succeeded.
func (r *BuildReport) Err() error {
	if r.OK() {
		return nil
	}
	errs := []error{ErrBuildFailed}
	for _, res := range r.Failed() {
		cause := res.Err
		if cause == nil {
			cause = ErrBuildFailed
		}
		errs = append(errs, zerr.With(zerr.Wrap(cause, res.ID.String()), "package", res.ID.String()))
	}
	for _, res := range r.Skipped() {
		err := zerr.With(zerr.Wrap(ErrSkipped, res.ID.String()), "package", res.ID.String())
		if res.FailedAncestor != "" {
			err = zerr.With(err, "failed_dependency", res.FailedAncestor.String())
		}
		if res.Err != nil && !errors.Is(res.Err, ErrSkipped) {
			err = zerr.With(err, "reason", res.Err.Error())
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
