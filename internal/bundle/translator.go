package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattjoyce/dabops/internal/workflow"
)

// Mode selects the top-level shape of a generated document.
type Mode string

const (
	ModeFull          Mode = "full"
	ModeResourcesOnly Mode = "resources-only"
)

const (
	defaultSource     = "WORKSPACE"
	defaultNumWorkers = 1
)

// DependencyAnalyzer may enrich a translated document before serialization.
type DependencyAnalyzer interface {
	Analyze(ctx context.Context, doc *Document, detail *workflow.Detail) error
}

// NoopAnalyzer logs the call and leaves the document untouched.
type NoopAnalyzer struct {
	Logger *slog.Logger
}

func (a NoopAnalyzer) Analyze(_ context.Context, _ *Document, detail *workflow.Detail) error {
	if a.Logger != nil {
		a.Logger.Debug("dependency analysis not implemented", "job_id", detail.JobID)
	}
	return nil
}

// Options configures the full-mode envelope.
type Options struct {
	TargetEnv     string
	WorkspaceHost string
	CurrentUser   string
	GitOriginURL  string
	GitBranch     string
}

// Request describes a single translation.
type Request struct {
	Mode                Mode
	IncludeDependencies bool
	// BundleName defaults to "<job_key>_bundle" when empty.
	BundleName string
}

// Translator converts workflow details into bundle documents.
type Translator struct {
	opts     Options
	analyzer DependencyAnalyzer
	logger   *slog.Logger
	now      func() time.Time
}

// NewTranslator creates a Translator. A nil analyzer is replaced by NoopAnalyzer.
func NewTranslator(opts Options, analyzer DependencyAnalyzer, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	if analyzer == nil {
		analyzer = NoopAnalyzer{Logger: logger}
	}
	if opts.TargetEnv == "" {
		opts.TargetEnv = "dev"
	}
	return &Translator{opts: opts, analyzer: analyzer, logger: logger, now: time.Now}
}

// Translate builds the document for one workflow. It fails with
// workflow.ErrMissingSettings when the detail carries no settings.
func (t *Translator) Translate(ctx context.Context, detail *workflow.Detail, req Request) (*Document, error) {
	if detail == nil {
		return nil, fmt.Errorf("translate: nil workflow detail")
	}
	if detail.Settings == nil {
		t.logger.Warn("workflow has no settings", "job_id", detail.JobID)
		return nil, fmt.Errorf("translate job %d: %w", detail.JobID, workflow.ErrMissingSettings)
	}

	key := JobKey(detail.Name)
	jobs := NewDocument().Set(key, t.jobResource(detail))
	resources := NewDocument().Set("jobs", jobs)

	var root *Document
	switch req.Mode {
	case ModeResourcesOnly:
		root = NewDocument().Set("resources", resources)
	default:
		bundleName := req.BundleName
		if bundleName == "" {
			bundleName = key + "_bundle"
		}
		root = t.envelope(bundleName, detail.DisplayName())
		root.Set("resources", resources)
	}

	if req.IncludeDependencies {
		t.logger.Info("running dependency analysis", "job_id", detail.JobID)
		if err := t.analyzer.Analyze(ctx, root, detail); err != nil {
			t.logger.Warn("dependency analysis failed", "job_id", detail.JobID, "error", err)
		}
	}
	return root, nil
}

// JobKey derives the resource key from a workflow name.
func JobKey(name string) string {
	key := strings.ToLower(name)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "" {
		return "unnamed_job"
	}
	return key
}

func (t *Translator) jobResource(d *workflow.Detail) *Document {
	s := d.Settings
	job := NewDocument()
	job.Set("name", d.DisplayName())
	job.SetIfPresent("description", d.Description)
	job.SetIfPresent("tags", s.Tags)
	job.SetIfPresent("timeout_seconds", s.TimeoutSeconds)
	job.SetIfPresent("max_concurrent_runs", s.MaxConcurrentRuns)
	if s.EmailNotifications != nil {
		job.SetIfPresent("email_notifications", emailDoc(s.EmailNotifications))
	}
	if s.WebhookNotifications != nil {
		job.SetIfPresent("webhook_notifications", webhookDoc(s.WebhookNotifications))
	}
	if s.Schedule != nil {
		job.SetIfPresent("schedule", t.scheduleDoc(d.JobID, s.Schedule))
	}
	if len(s.JobClusters) > 0 {
		clusters := make([]*Document, 0, len(s.JobClusters))
		for _, jc := range s.JobClusters {
			clusters = append(clusters, NewDocument().
				Set("job_cluster_key", jc.Key).
				Set("new_cluster", clusterDoc(jc.NewCluster)))
		}
		job.Set("job_clusters", clusters)
	}
	if len(s.Tasks) > 0 {
		tasks := make([]*Document, 0, len(s.Tasks))
		for _, task := range s.Tasks {
			tasks = append(tasks, t.taskDoc(d.JobID, task))
		}
		job.Set("tasks", tasks)
	}
	return job
}

func emailDoc(e *workflow.EmailNotifications) *Document {
	skip := false
	if e.NoAlertForSkippedRuns != nil {
		skip = *e.NoAlertForSkippedRuns
	}
	return NewDocument().
		SetIfPresent("on_start", e.OnStart).
		SetIfPresent("on_success", e.OnSuccess).
		SetIfPresent("on_failure", e.OnFailure).
		Set("no_alert_for_skipped_runs", skip)
}

func webhookDoc(w *workflow.WebhookNotifications) *Document {
	refs := func(hooks []workflow.Webhook) []*Document {
		out := make([]*Document, 0, len(hooks))
		for _, h := range hooks {
			out = append(out, NewDocument().Set("id", h.ID))
		}
		return out
	}
	return NewDocument().
		SetIfPresent("on_start", refs(w.OnStart)).
		SetIfPresent("on_success", refs(w.OnSuccess)).
		SetIfPresent("on_failure", refs(w.OnFailure))
}

func (t *Translator) scheduleDoc(jobID int64, s *workflow.Schedule) *Document {
	if _, err := workflow.InspectCron(s.QuartzCronExpression, s.TimezoneID, t.now()); err != nil {
		t.logger.Warn("schedule has an invalid cron expression", "job_id", jobID, "error", err)
	}
	pause := s.PauseStatus
	if pause == "" {
		pause = workflow.Unpaused
	}
	return NewDocument().
		SetIfPresent("quartz_cron_expression", s.QuartzCronExpression).
		SetIfPresent("timezone_id", s.TimezoneID).
		Set("pause_status", string(pause))
}

func clusterDoc(c workflow.ClusterSpec) *Document {
	doc := NewDocument()
	doc.SetIfPresent("spark_version", c.SparkVersion)
	doc.SetIfPresent("node_type_id", c.NodeTypeID)
	switch {
	case c.NumWorkers != nil:
		doc.Set("num_workers", *c.NumWorkers)
	case c.Autoscale == nil:
		doc.Set("num_workers", defaultNumWorkers)
	}
	if c.Autoscale != nil {
		doc.Set("autoscale", NewDocument().
			Set("min_workers", c.Autoscale.MinWorkers).
			Set("max_workers", c.Autoscale.MaxWorkers))
	}
	doc.SetIfPresent("spark_conf", c.SparkConf)
	doc.SetIfPresent("spark_env_vars", c.SparkEnvVars)
	doc.SetIfPresent("custom_tags", c.CustomTags)
	if len(c.InitScripts) > 0 {
		scripts := make([]*Document, 0, len(c.InitScripts))
		for _, loc := range c.InitScripts {
			scripts = append(scripts, locationDoc(loc))
		}
		doc.Set("init_scripts", scripts)
	}
	doc.SetIfPresent("driver_node_type_id", c.DriverNodeTypeID)
	doc.SetIfPresent("ssh_public_keys", c.SSHPublicKeys)
	if c.ClusterLogConf != nil {
		doc.Set("cluster_log_conf", locationDoc(*c.ClusterLogConf))
	}
	doc.SetIfPresent("enable_elastic_disk", c.EnableElasticDisk)
	if ds := c.DiskSpec; ds != nil {
		disk := NewDocument().
			SetIfPresent("disk_count", ds.DiskCount).
			SetIfPresent("disk_size", ds.DiskSize)
		if ds.DiskType != nil {
			disk.SetIfPresent("disk_type", NewDocument().
				SetIfPresent("ebs_volume_type", ds.DiskType.EBSVolumeType).
				SetIfPresent("azure_disk_volume_type", ds.DiskType.AzureDiskVolumeType))
		}
		doc.SetIfPresent("disk_spec", disk)
	}
	if len(c.ClusterMountInfos) > 0 {
		mounts := make([]*Document, 0, len(c.ClusterMountInfos))
		for _, m := range c.ClusterMountInfos {
			mount := NewDocument().
				SetIfPresent("local_mount_dir_path", m.LocalMountDirPath).
				SetIfPresent("remote_mount_dir_path", m.RemoteMountDirPath)
			mount.SetIfPresent("network_filesystem_info", NewDocument().
				SetIfPresent("server_address", m.ServerAddress).
				SetIfPresent("mount_options", m.MountOptions))
			mounts = append(mounts, mount)
		}
		doc.Set("cluster_mount_infos", mounts)
	}
	return doc
}

func locationDoc(loc workflow.StorageLocation) *Document {
	return NewDocument().Set(loc.Kind, NewDocument().
		Set("destination", loc.Destination).
		SetIfPresent("region", loc.Region))
}

func (t *Translator) taskDoc(jobID int64, task workflow.Task) *Document {
	doc := NewDocument()
	doc.Set("task_key", task.Key)
	doc.SetIfPresent("description", task.Description)
	if len(task.DependsOn) > 0 {
		deps := make([]*Document, 0, len(task.DependsOn))
		for _, k := range task.DependsOn {
			deps = append(deps, NewDocument().Set("task_key", k))
		}
		doc.Set("depends_on", deps)
	}
	doc.SetIfPresent("timeout_seconds", task.TimeoutSeconds)
	doc.SetIfPresent("max_retries", task.MaxRetries)
	doc.SetIfPresent("min_retry_interval_millis", task.MinRetryIntervalMillis)
	doc.SetIfPresent("retry_on_timeout", task.RetryOnTimeout)

	if task.Payload == nil {
		t.logger.Debug("task has no recognised payload", "job_id", jobID, "task_key", task.Key)
	} else {
		key, payload := payloadDoc(task.Payload)
		doc.Set(key, payload)
	}

	switch c := task.Compute.(type) {
	case workflow.JobClusterRef:
		doc.Set("job_cluster_key", c.Key)
	case workflow.ExistingCluster:
		doc.Set("existing_cluster_id", c.ClusterID)
	case workflow.NewCluster:
		doc.Set("new_cluster", clusterDoc(c.Spec))
	}

	if len(task.Libraries) > 0 {
		libs := make([]*Document, 0, len(task.Libraries))
		for _, lib := range task.Libraries {
			libs = append(libs, libraryDoc(lib))
		}
		doc.Set("libraries", libs)
	}
	return doc
}

func payloadDoc(p workflow.Payload) (string, *Document) {
	switch v := p.(type) {
	case workflow.NotebookTask:
		return "notebook_task", NewDocument().
			Set("notebook_path", v.NotebookPath).
			Set("source", orDefault(v.Source, defaultSource)).
			SetIfPresent("base_parameters", v.BaseParameters)
	case workflow.PythonWheelTask:
		return "python_wheel_task", NewDocument().
			Set("package_name", v.PackageName).
			Set("entry_point", v.EntryPoint).
			SetIfPresent("parameters", v.Parameters).
			SetIfPresent("named_parameters", v.NamedParameters)
	case workflow.SparkJarTask:
		return "spark_jar_task", NewDocument().
			Set("main_class_name", v.MainClassName).
			SetIfPresent("parameters", v.Parameters)
	case workflow.SparkPythonTask:
		return "spark_python_task", NewDocument().
			Set("python_file", v.PythonFile).
			SetIfPresent("parameters", v.Parameters).
			Set("source", orDefault(v.Source, defaultSource))
	case workflow.SparkSubmitTask:
		return "spark_submit_task", NewDocument().
			SetIfPresent("parameters", v.Parameters)
	case workflow.PipelineTask:
		full := false
		if v.FullRefresh != nil {
			full = *v.FullRefresh
		}
		return "pipeline_task", NewDocument().
			Set("pipeline_id", v.PipelineID).
			Set("full_refresh", full)
	case workflow.SQLTask:
		doc := NewDocument()
		if v.QueryID != "" {
			doc.Set("query", NewDocument().Set("query_id", v.QueryID))
		}
		if v.DashboardID != "" {
			doc.Set("dashboard", NewDocument().Set("dashboard_id", v.DashboardID))
		}
		if v.AlertID != "" {
			doc.Set("alert", NewDocument().Set("alert_id", v.AlertID))
		}
		if v.File != nil {
			doc.Set("file", NewDocument().
				Set("path", v.File.Path).
				SetIfPresent("source", v.File.Source))
		}
		doc.SetIfPresent("warehouse_id", v.WarehouseID)
		doc.SetIfPresent("parameters", v.Parameters)
		return "sql_task", doc
	}
	return string(p.Kind()) + "_task", NewDocument()
}

func libraryDoc(l workflow.Library) *Document {
	doc := NewDocument()
	switch v := l.(type) {
	case workflow.JarLibrary:
		doc.Set("jar", v.Path)
	case workflow.EggLibrary:
		doc.Set("egg", v.Path)
	case workflow.WheelLibrary:
		doc.Set("whl", v.Path)
	case workflow.PyPILibrary:
		doc.Set("pypi", NewDocument().
			Set("package", v.Package).
			SetIfPresent("repo", v.Repo))
	case workflow.MavenLibrary:
		doc.Set("maven", NewDocument().
			Set("coordinates", v.Coordinates).
			SetIfPresent("repo", v.Repo).
			SetIfPresent("exclusions", v.Exclusions))
	case workflow.CranLibrary:
		doc.Set("cran", NewDocument().
			Set("package", v.Package).
			SetIfPresent("repo", v.Repo))
	}
	return doc
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
