package workflow

import "time"

// Overview is a display-oriented projection of a Detail, shared by the CLI
// and the HTTP API.
type Overview struct {
	Summary
	HasSettings bool              `json:"has_settings"`
	Tasks       []TaskOverview    `json:"tasks"`
	Schedule    *ScheduleOverview `json:"schedule,omitempty"`
	RecentRuns  []Run             `json:"recent_runs"`
}

type TaskOverview struct {
	Key       string   `json:"task_key"`
	Kind      string   `json:"kind"`
	DependsOn []string `json:"depends_on,omitempty"`
	Compute   string   `json:"compute,omitempty"`
	Libraries int      `json:"libraries,omitempty"`
}

type ScheduleOverview struct {
	Expression  string     `json:"quartz_cron_expression"`
	Timezone    string     `json:"timezone_id,omitempty"`
	PauseStatus string     `json:"pause_status"`
	Description string     `json:"description,omitempty"`
	Next        *time.Time `json:"next_run,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// NewOverview projects d. Unknown task kinds are reported as "unsupported".
func NewOverview(d *Detail, now time.Time) Overview {
	o := Overview{
		Summary:    d.Summary,
		Tasks:      []TaskOverview{},
		RecentRuns: d.RecentRuns,
	}
	if o.RecentRuns == nil {
		o.RecentRuns = []Run{}
	}
	if d.Settings == nil {
		return o
	}
	o.HasSettings = true

	for _, t := range d.Settings.Tasks {
		to := TaskOverview{
			Key:       t.Key,
			Kind:      "unsupported",
			DependsOn: t.DependsOn,
			Compute:   computeLabel(t.Compute),
			Libraries: len(t.Libraries),
		}
		if t.Payload != nil {
			to.Kind = string(t.Payload.Kind())
		}
		o.Tasks = append(o.Tasks, to)
	}

	if s := d.Settings.Schedule; s != nil {
		so := &ScheduleOverview{
			Expression:  s.QuartzCronExpression,
			Timezone:    s.TimezoneID,
			PauseStatus: string(s.PauseStatus),
		}
		if so.PauseStatus == "" {
			so.PauseStatus = string(Unpaused)
		}
		info, err := InspectCron(s.QuartzCronExpression, s.TimezoneID, now)
		if err != nil {
			so.Error = err.Error()
		} else {
			so.Description = info.Description
			if !info.Next.IsZero() {
				next := info.Next
				so.Next = &next
			}
		}
		o.Schedule = so
	}
	return o
}

func computeLabel(c Compute) string {
	switch v := c.(type) {
	case JobClusterRef:
		return "job_cluster:" + v.Key
	case ExistingCluster:
		return "existing_cluster:" + v.ClusterID
	case NewCluster:
		return "new_cluster"
	default:
		return ""
	}
}
