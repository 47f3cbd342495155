package bundle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/dabops/internal/workflow"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func newTestTranslator(opts Options, analyzer DependencyAnalyzer) *Translator {
	return NewTranslator(opts, analyzer, quietLogger())
}

func nightlySync() *workflow.Detail {
	return &workflow.Detail{
		Summary: workflow.Summary{JobID: 42, Name: "Nightly Sync", Status: workflow.StatusActive},
		Settings: &workflow.Settings{
			Name: "Nightly Sync",
			Tasks: []workflow.Task{
				{Key: "t1", Payload: workflow.NotebookTask{NotebookPath: "/x"}},
			},
		},
	}
}

func jobDoc(t *testing.T, doc *Document, key string) *Document {
	t.Helper()
	v, ok := doc.lookup("resources", "jobs", key)
	require.True(t, ok, "resources.jobs.%s missing", key)
	job, ok := v.(*Document)
	require.True(t, ok)
	return job
}

func TestTranslateResourcesOnlyScenario(t *testing.T) {
	tr := newTestTranslator(Options{}, nil)

	doc, err := tr.Translate(context.Background(), nightlySync(), Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)

	assert.Equal(t, []string{"resources"}, doc.Keys())
	job := jobDoc(t, doc, "nightly_sync")
	assert.Equal(t, []string{"name", "tasks"}, job.Keys())

	v, _ := job.Get("tasks")
	tasks, ok := v.([]*Document)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	assert.Equal(t, []string{"task_key", "notebook_task"}, tasks[0].Keys())

	nb := tasks[0].Doc("notebook_task")
	require.NotNil(t, nb)
	assert.Equal(t, []string{"notebook_path", "source"}, nb.Keys())
	path, _ := nb.Get("notebook_path")
	source, _ := nb.Get("source")
	assert.Equal(t, "/x", path)
	assert.Equal(t, "WORKSPACE", source)
}

func TestTranslateOmitsAbsentBlocks(t *testing.T) {
	tr := newTestTranslator(Options{}, nil)
	detail := &workflow.Detail{
		Summary: workflow.Summary{JobID: 7, Name: "bare"},
		Settings: &workflow.Settings{
			Name: "bare",
			Tags: workflow.StringMap{},
		},
	}

	doc, err := tr.Translate(context.Background(), detail, Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)

	job := jobDoc(t, doc, "bare")
	for _, key := range []string{"schedule", "job_clusters", "email_notifications", "webhook_notifications", "tags", "tasks", "description"} {
		_, ok := job.Get(key)
		assert.False(t, ok, "unexpected key %s", key)
	}
}

func TestJobKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"My ETL-Job", "my_etl_job"},
		{"", "unnamed_job"},
		{"already_ok", "already_ok"},
		{"Mixed Case - Two", "mixed_case___two"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JobKey(tt.name), "JobKey(%q)", tt.name)
	}
}

func TestTranslatePayloadPrecedence(t *testing.T) {
	raw := []byte(`{
		"job_id": 9,
		"settings": {
			"name": "malformed",
			"tasks": [{
				"task_key": "both",
				"notebook_task": {"notebook_path": "/nb"},
				"python_wheel_task": {"package_name": "pkg", "entry_point": "main"}
			}]
		}
	}`)
	job, err := workflow.DecodeJob(raw)
	require.NoError(t, err)

	tr := newTestTranslator(Options{}, nil)
	doc, err := tr.Translate(context.Background(), job.Detail(nil), Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)

	tasks, _ := jobDoc(t, doc, "malformed").Get("tasks")
	task := tasks.([]*Document)[0]
	_, hasNotebook := task.Get("notebook_task")
	_, hasWheel := task.Get("python_wheel_task")
	assert.True(t, hasNotebook)
	assert.False(t, hasWheel)
}

func TestTranslateModeShape(t *testing.T) {
	t.Run("full dev", func(t *testing.T) {
		tr := newTestTranslator(Options{TargetEnv: "dev", WorkspaceHost: "https://example.cloud.databricks.com", CurrentUser: "me@example.com"}, nil)
		doc, err := tr.Translate(context.Background(), nightlySync(), Request{Mode: ModeFull, BundleName: "sync"})
		require.NoError(t, err)

		assert.Equal(t, []string{"bundle", "variables", "targets", "resources"}, doc.Keys())
		assert.Equal(t, []string{"dev", "staging", "prod"}, doc.Doc("targets").Keys())

		name, _ := doc.lookup("bundle", "name")
		assert.Equal(t, "sync", name)
		desc, _ := doc.lookup("bundle", "description")
		assert.Equal(t, "Asset bundle for workflow: Nightly Sync", desc)
		user, _ := doc.lookup("targets", "dev", "workspace", "current_user", "user_name")
		assert.Equal(t, "me@example.com", user)
		host, _ := doc.lookup("targets", "dev", "variables", "workspace_host", "default")
		assert.Equal(t, "https://example.cloud.databricks.com", host)
		isDefault, _ := doc.lookup("targets", "dev", "default")
		assert.Equal(t, true, isDefault)
		stagingHost, _ := doc.lookup("targets", "staging", "workspace", "host")
		assert.Equal(t, "${var.staging_workspace_host}", stagingHost)
		prodMode, _ := doc.lookup("targets", "prod", "mode")
		assert.Equal(t, "production", prodMode)
	})

	t.Run("full prod has a single target", func(t *testing.T) {
		tr := newTestTranslator(Options{TargetEnv: "prod"}, nil)
		doc, err := tr.Translate(context.Background(), nightlySync(), Request{Mode: ModeFull})
		require.NoError(t, err)

		assert.Equal(t, []string{"prod"}, doc.Doc("targets").Keys())
		mode, _ := doc.lookup("targets", "prod", "mode")
		assert.Equal(t, "production", mode)
		user, _ := doc.lookup("targets", "prod", "workspace", "current_user", "user_name")
		assert.Equal(t, "unknown_user", user)
		name, _ := doc.lookup("bundle", "name")
		assert.Equal(t, "nightly_sync_bundle", name)
	})

	t.Run("resources only", func(t *testing.T) {
		tr := newTestTranslator(Options{}, nil)
		doc, err := tr.Translate(context.Background(), nightlySync(), Request{Mode: ModeResourcesOnly})
		require.NoError(t, err)
		assert.Equal(t, []string{"resources"}, doc.Keys())
	})
}

func TestTranslateMissingSettings(t *testing.T) {
	tr := newTestTranslator(Options{}, nil)
	detail := &workflow.Detail{Summary: workflow.Summary{JobID: 3, Name: "empty"}}

	doc, err := tr.Translate(context.Background(), detail, Request{Mode: ModeFull})
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, workflow.ErrMissingSettings))

	_, err = tr.Translate(context.Background(), nil, Request{})
	assert.Error(t, err)
}

func TestTranslateNotificationsAndSchedule(t *testing.T) {
	tr := newTestTranslator(Options{}, nil)
	detail := nightlySync()
	detail.Settings.MaxConcurrentRuns = intPtr(2)
	detail.Settings.TimeoutSeconds = intPtr(3600)
	detail.Settings.EmailNotifications = &workflow.EmailNotifications{OnFailure: []string{"ops@example.com"}}
	detail.Settings.WebhookNotifications = &workflow.WebhookNotifications{OnSuccess: []workflow.Webhook{{ID: "hook-1"}}}
	detail.Settings.Schedule = &workflow.Schedule{QuartzCronExpression: "0 0 2 * * ?", TimezoneID: "UTC"}

	doc, err := tr.Translate(context.Background(), detail, Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)
	job := jobDoc(t, doc, "nightly_sync")

	assert.Equal(t, []string{"name", "timeout_seconds", "max_concurrent_runs", "email_notifications", "webhook_notifications", "schedule", "tasks"}, job.Keys())

	email := job.Doc("email_notifications")
	assert.Equal(t, []string{"on_failure", "no_alert_for_skipped_runs"}, email.Keys())
	skip, _ := email.Get("no_alert_for_skipped_runs")
	assert.Equal(t, false, skip)

	hooks, _ := job.Doc("webhook_notifications").Get("on_success")
	require.Len(t, hooks, 1)
	id, _ := hooks.([]*Document)[0].Get("id")
	assert.Equal(t, "hook-1", id)

	pause, _ := job.Doc("schedule").Get("pause_status")
	assert.Equal(t, "UNPAUSED", pause)

	maxRuns, _ := job.Get("max_concurrent_runs")
	assert.Equal(t, 2, maxRuns)
}

func TestTranslateClusters(t *testing.T) {
	tr := newTestTranslator(Options{}, nil)
	detail := nightlySync()
	detail.Settings.JobClusters = []workflow.JobCluster{
		{Key: "fixed", NewCluster: workflow.ClusterSpec{SparkVersion: "14.3.x-scala2.12", NodeTypeID: "i3.xlarge", SparkConf: workflow.StringMap{}}},
		{Key: "elastic", NewCluster: workflow.ClusterSpec{
			SparkVersion: "14.3.x-scala2.12",
			Autoscale:    &workflow.Autoscale{MinWorkers: 1, MaxWorkers: 4},
			CustomTags:   workflow.StringMap{{Key: "team", Value: "data"}},
			InitScripts:  []workflow.StorageLocation{{Kind: "workspace", Destination: "/init.sh"}},
			DiskSpec:     &workflow.DiskSpec{DiskCount: intPtr(2), DiskType: &workflow.DiskType{EBSVolumeType: "GENERAL_PURPOSE_SSD"}},
		}},
	}

	doc, err := tr.Translate(context.Background(), detail, Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)

	v, _ := jobDoc(t, doc, "nightly_sync").Get("job_clusters")
	clusters := v.([]*Document)
	require.Len(t, clusters, 2)

	fixed := clusters[0].Doc("new_cluster")
	assert.Equal(t, []string{"spark_version", "node_type_id", "num_workers"}, fixed.Keys())
	workers, _ := fixed.Get("num_workers")
	assert.Equal(t, 1, workers)

	elastic := clusters[1].Doc("new_cluster")
	_, hasWorkers := elastic.Get("num_workers")
	assert.False(t, hasWorkers)
	maxWorkers, _ := elastic.lookup("autoscale", "max_workers")
	assert.Equal(t, 4, maxWorkers)
	scripts, _ := elastic.Get("init_scripts")
	dest, _ := scripts.([]*Document)[0].lookup("workspace", "destination")
	assert.Equal(t, "/init.sh", dest)
	ebs, _ := elastic.lookup("disk_spec", "disk_type", "ebs_volume_type")
	assert.Equal(t, "GENERAL_PURPOSE_SSD", ebs)
}

func TestTranslateTaskComputeAndLibraries(t *testing.T) {
	tr := newTestTranslator(Options{}, nil)
	detail := nightlySync()
	detail.Settings.Tasks = []workflow.Task{
		{
			Key:            "ingest",
			DependsOn:      []string{"setup"},
			MaxRetries:     intPtr(3),
			RetryOnTimeout: boolPtr(true),
			Payload:        workflow.PipelineTask{PipelineID: "p-1"},
			Compute:        workflow.JobClusterRef{Key: "shared"},
			Libraries: []workflow.Library{
				workflow.WheelLibrary{Path: "/dist/a.whl"},
				workflow.PyPILibrary{Package: "requests"},
				workflow.MavenLibrary{Coordinates: "g:a:1", Exclusions: []string{"x:y"}},
			},
		},
		{Key: "report", Payload: workflow.SQLTask{QueryID: "q-1", WarehouseID: "wh"}, Compute: workflow.ExistingCluster{ClusterID: "c-1"}},
		{Key: "adhoc", Payload: workflow.SparkPythonTask{PythonFile: "main.py"}, Compute: workflow.NewCluster{Spec: workflow.ClusterSpec{SparkVersion: "14.3"}}},
		{Key: "bare"},
	}

	doc, err := tr.Translate(context.Background(), detail, Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)
	v, _ := jobDoc(t, doc, "nightly_sync").Get("tasks")
	tasks := v.([]*Document)
	require.Len(t, tasks, 4)

	ingest := tasks[0]
	assert.Equal(t, []string{"task_key", "depends_on", "max_retries", "retry_on_timeout", "pipeline_task", "job_cluster_key", "libraries"}, ingest.Keys())
	full, _ := ingest.lookup("pipeline_task", "full_refresh")
	assert.Equal(t, false, full)
	libs, _ := ingest.Get("libraries")
	require.Len(t, libs, 3)
	whl, _ := libs.([]*Document)[0].Get("whl")
	assert.Equal(t, "/dist/a.whl", whl)
	assert.Equal(t, []string{"package"}, libs.([]*Document)[1].Doc("pypi").Keys())
	assert.Equal(t, []string{"coordinates", "exclusions"}, libs.([]*Document)[2].Doc("maven").Keys())

	report := tasks[1]
	queryID, _ := report.lookup("sql_task", "query", "query_id")
	assert.Equal(t, "q-1", queryID)
	clusterID, _ := report.Get("existing_cluster_id")
	assert.Equal(t, "c-1", clusterID)

	adhoc := tasks[2]
	source, _ := adhoc.lookup("spark_python_task", "source")
	assert.Equal(t, "WORKSPACE", source)
	workers, _ := adhoc.lookup("new_cluster", "num_workers")
	assert.Equal(t, 1, workers)

	assert.Equal(t, []string{"task_key"}, tasks[3].Keys())
}

type recordingAnalyzer struct {
	calls int
	err   error
}

func (a *recordingAnalyzer) Analyze(_ context.Context, doc *Document, _ *workflow.Detail) error {
	a.calls++
	if _, ok := doc.Get("resources"); !ok {
		return errors.New("resources not built yet")
	}
	return a.err
}

func TestTranslateDependencyHook(t *testing.T) {
	analyzer := &recordingAnalyzer{err: errors.New("boom")}
	tr := newTestTranslator(Options{}, analyzer)

	doc, err := tr.Translate(context.Background(), nightlySync(), Request{Mode: ModeResourcesOnly, IncludeDependencies: true})
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Equal(t, 1, analyzer.calls)

	_, err = tr.Translate(context.Background(), nightlySync(), Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.calls)
}
