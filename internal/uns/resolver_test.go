package uns

import (
	"testing"

	"github.com/eryxon/uns-gateway/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		evCtx     *model.EventContext
		defaults  Defaults
		eventType string
		tenantID  string
		want      string
	}{
		{
			name:    "context values normalized",
			pattern: "{enterprise}/{site}/{cell}/{event}",
			evCtx: &model.EventContext{
				Enterprise: "Acme Co",
				Site:       "Factory 1",
				Cell:       "Laser Cutting",
			},
			eventType: "operation.started",
			want:      "acme_co/factory_1/laser_cutting/operation/started",
		},
		{
			name:      "missing optional segment is dropped",
			pattern:   "{enterprise}/{line}/{event}",
			evCtx:     &model.EventContext{},
			eventType: "operation.started",
			want:      "eryxon/operation/started",
		},
		{
			name:      "broker defaults beat generic fallbacks",
			pattern:   "{enterprise}/{site}/{area}/{event}",
			defaults:  Defaults{Enterprise: "Globex", Site: "Plant 2"},
			eventType: "job.completed",
			want:      "globex/plant_2/production/job/completed",
		},
		{
			name:    "context beats broker default",
			pattern: "{enterprise}/{event}",
			evCtx:   &model.EventContext{Enterprise: "From Context"},
			defaults: Defaults{
				Enterprise: "from-default",
			},
			eventType: "job.created",
			want:      "from_context/job/created",
		},
		{
			name:      "tenant_id passes through unmodified",
			pattern:   "tenants/{tenant_id}/{event}",
			eventType: "part.scrapped",
			tenantID:  "T-42:Xy",
			want:      "tenants/T-42:Xy/part/scrapped",
		},
		{
			name:      "unknown placeholder collapses silently",
			pattern:   "{enterprise}/{warehouse}/{event}",
			eventType: "operation.started",
			want:      "eryxon/operation/started",
		},
		{
			name:      "nil context",
			pattern:   "{enterprise}/{site}/{event}",
			eventType: "job.completed",
			want:      "eryxon/main/job/completed",
		},
		{
			name:    "special characters stripped from segments",
			pattern: "{enterprise}/{job_number}/{event}",
			evCtx: &model.EventContext{
				Enterprise: "Müller & Söhne!",
				JobNumber:  "JOB #1024",
			},
			eventType: "job.started",
			want:      "mller__shne/job_1024/job/started",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.pattern, tt.evCtx, tt.defaults, tt.eventType, tt.tenantID)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Acme Co", "  spaced   out  ", "already_normal", "UPPER-case",
		"weird!@#chars", "", "tabs\tand\nnewlines", "123-456_ok",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize not idempotent for %q", in)
	}
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate("{enterprise}/{site}/{event}"))
	assert.Equal(t, []string{"warehouse", "zone"}, Validate("{warehouse}/{zone}/{event}"))
}
