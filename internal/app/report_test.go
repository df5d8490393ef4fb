package app_test

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/app"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/engine/lockfile"
)

func id(name, version string) domain.PackageID {
	return domain.NewPackageID(name, domain.MustParseVersion(version), domain.IndexSource())
}

func TestRenderResult(t *testing.T) {
	failedBuild := &domain.BuildReport{}
	failedBuild.Add(domain.BuildResult{ID: id("lfs", "1.8.0"), Status: domain.VertexStatusCompleted})
	failedBuild.Add(domain.BuildResult{
		ID:         id("lpeg", "1.1.0"),
		Status:     domain.VertexStatusFailed,
		Diagnostic: "gcc: error: lpeg.c: No such file\ncompilation terminated.\n",
	})
	failedBuild.Add(domain.BuildResult{ID: id("lua-cjson", "2.1.0"), Status: domain.VertexStatusCached})
	failedBuild.Add(domain.BuildResult{
		ID:             id("busted", "2.0.0"),
		Status:         domain.VertexStatusSkipped,
		FailedAncestor: id("lpeg", "1.1.0"),
	})

	cachedBuild := &domain.BuildReport{}
	cachedBuild.Add(domain.BuildResult{ID: id("lfs", "1.8.0"), Status: domain.VertexStatusCached})

	tests := []struct {
		name       string
		result     *app.Result
		goldenName string
	}{
		{
			name: "lock changes and failures",
			result: &app.Result{
				Sync: &app.SyncReport{
					Outcome: lockfile.NeedsPartialResolve,
					Added:   []domain.PackageID{id("lfs", "1.8.0"), id("lpeg", "1.1.0")},
					Removed: []domain.PackageID{id("penlight", "1.13.0")},
					Written: true,
				},
				Build: failedBuild,
			},
			goldenName: "report_install",
		},
		{
			name:       "nothing to do",
			result:     &app.Result{Sync: &app.SyncReport{}, Build: cachedBuild},
			goldenName: "report_up_to_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")
			var buf bytes.Buffer
			require.NoError(t, app.RenderResult(&buf, tt.result))

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}
