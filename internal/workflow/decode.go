package workflow

import (
	"encoding/json"
	"fmt"
)

// APIJob is a job object as returned by the jobs list and get endpoints.
type APIJob struct {
	JobID           int64        `json:"job_id"`
	CreatorUserName string       `json:"creator_user_name"`
	CreatedTime     int64        `json:"created_time"`
	Settings        *apiSettings `json:"settings"`
}

// APIRun is a run object as returned by the runs list endpoint.
type APIRun struct {
	RunID     int64 `json:"run_id"`
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
	State     *struct {
		LifeCycleState string `json:"life_cycle_state"`
		ResultState    string `json:"result_state"`
	} `json:"state"`
}

// DecodeJob parses a single job object.
func DecodeJob(data []byte) (*APIJob, error) {
	var job APIJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// Summary converts the job into a listing entry.
func (j *APIJob) Summary() Summary {
	s := Summary{
		JobID:           j.JobID,
		Name:            "Unnamed Job",
		CreatedTime:     j.CreatedTime,
		ModifiedTime:    j.CreatedTime,
		CreatorUserName: j.CreatorUserName,
		Status:          StatusActive,
	}
	if j.Settings != nil {
		s.Name = j.Settings.Name
		s.Description = j.Settings.Description
		s.Tags = j.Settings.Tags
	}
	return s
}

// Detail converts the job and its runs into a Detail. Only the first
// MaxRecentRuns runs are kept.
func (j *APIJob) Detail(runs []APIRun) *Detail {
	d := &Detail{Summary: j.Summary()}
	if j.Settings != nil {
		d.Settings = j.Settings.settings()
	}
	if len(runs) > MaxRecentRuns {
		runs = runs[:MaxRecentRuns]
	}
	for _, r := range runs {
		run := Run{RunID: r.RunID, StartTime: r.StartTime, EndTime: r.EndTime, LifeCycleState: "Unknown", ResultState: "Unknown"}
		if r.State != nil {
			run.LifeCycleState = r.State.LifeCycleState
			run.ResultState = r.State.ResultState
		}
		d.RecentRuns = append(d.RecentRuns, run)
	}
	return d
}

type apiSettings struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Tags                 StringMap       `json:"tags"`
	TimeoutSeconds       *int            `json:"timeout_seconds"`
	MaxConcurrentRuns    *int            `json:"max_concurrent_runs"`
	EmailNotifications   *apiEmail       `json:"email_notifications"`
	WebhookNotifications *apiWebhooks    `json:"webhook_notifications"`
	Schedule             *apiSchedule    `json:"schedule"`
	JobClusters          []apiJobCluster `json:"job_clusters"`
	Tasks                []apiTask       `json:"tasks"`
}

type apiEmail struct {
	OnStart               []string `json:"on_start"`
	OnSuccess             []string `json:"on_success"`
	OnFailure             []string `json:"on_failure"`
	NoAlertForSkippedRuns *bool    `json:"no_alert_for_skipped_runs"`
}

type apiWebhookRef struct {
	ID string `json:"id"`
}

type apiWebhooks struct {
	OnStart   []apiWebhookRef `json:"on_start"`
	OnSuccess []apiWebhookRef `json:"on_success"`
	OnFailure []apiWebhookRef `json:"on_failure"`
}

type apiSchedule struct {
	QuartzCronExpression string `json:"quartz_cron_expression"`
	TimezoneID           string `json:"timezone_id"`
	PauseStatus          string `json:"pause_status"`
}

type apiJobCluster struct {
	JobClusterKey string     `json:"job_cluster_key"`
	NewCluster    apiCluster `json:"new_cluster"`
}

type apiDestination struct {
	Destination string `json:"destination"`
	Region      string `json:"region,omitempty"`
}

// apiStorage holds exactly one populated backend.
type apiStorage struct {
	Workspace *apiDestination `json:"workspace"`
	Volumes   *apiDestination `json:"volumes"`
	DBFS      *apiDestination `json:"dbfs"`
	S3        *apiDestination `json:"s3"`
	File      *apiDestination `json:"file"`
	ABFSS     *apiDestination `json:"abfss"`
	GCS       *apiDestination `json:"gcs"`
}

type apiCluster struct {
	SparkVersion     string         `json:"spark_version"`
	NodeTypeID       string         `json:"node_type_id"`
	NumWorkers       *int           `json:"num_workers"`
	Autoscale        *apiAutoscale  `json:"autoscale"`
	SparkConf        StringMap      `json:"spark_conf"`
	SparkEnvVars     StringMap      `json:"spark_env_vars"`
	CustomTags       StringMap      `json:"custom_tags"`
	InitScripts      []apiStorage   `json:"init_scripts"`
	DriverNodeTypeID string         `json:"driver_node_type_id"`
	SSHPublicKeys    []string       `json:"ssh_public_keys"`
	ClusterLogConf   *apiStorage    `json:"cluster_log_conf"`
	EnableElasticDsk *bool          `json:"enable_elastic_disk"`
	DiskSpec         *apiDiskSpec   `json:"disk_spec"`
	MountInfos       []apiMountInfo `json:"cluster_mount_infos"`
}

type apiAutoscale struct {
	MinWorkers int `json:"min_workers"`
	MaxWorkers int `json:"max_workers"`
}

type apiDiskSpec struct {
	DiskCount *int `json:"disk_count"`
	DiskSize  *int `json:"disk_size"`
	DiskType  *struct {
		EBSVolumeType       string `json:"ebs_volume_type"`
		AzureDiskVolumeType string `json:"azure_disk_volume_type"`
	} `json:"disk_type"`
}

type apiMountInfo struct {
	LocalMountDirPath  string `json:"local_mount_dir_path"`
	RemoteMountDirPath string `json:"remote_mount_dir_path"`
	NetworkFilesystem  *struct {
		ServerAddress string `json:"server_address"`
		MountOptions  string `json:"mount_options"`
	} `json:"network_filesystem_info"`
}

type apiTask struct {
	TaskKey     string `json:"task_key"`
	Description string `json:"description"`
	DependsOn   []struct {
		TaskKey string `json:"task_key"`
	} `json:"depends_on"`
	TimeoutSeconds         *int  `json:"timeout_seconds"`
	MaxRetries             *int  `json:"max_retries"`
	MinRetryIntervalMillis *int  `json:"min_retry_interval_millis"`
	RetryOnTimeout         *bool `json:"retry_on_timeout"`

	NotebookTask *struct {
		NotebookPath   string    `json:"notebook_path"`
		Source         string    `json:"source"`
		BaseParameters StringMap `json:"base_parameters"`
	} `json:"notebook_task"`
	PythonWheelTask *struct {
		PackageName     string    `json:"package_name"`
		EntryPoint      string    `json:"entry_point"`
		Parameters      []string  `json:"parameters"`
		NamedParameters StringMap `json:"named_parameters"`
	} `json:"python_wheel_task"`
	SparkJarTask *struct {
		MainClassName string   `json:"main_class_name"`
		Parameters    []string `json:"parameters"`
	} `json:"spark_jar_task"`
	SparkPythonTask *struct {
		PythonFile string   `json:"python_file"`
		Parameters []string `json:"parameters"`
		Source     string   `json:"source"`
	} `json:"spark_python_task"`
	SparkSubmitTask *struct {
		Parameters []string `json:"parameters"`
	} `json:"spark_submit_task"`
	PipelineTask *struct {
		PipelineID  string `json:"pipeline_id"`
		FullRefresh *bool  `json:"full_refresh"`
	} `json:"pipeline_task"`
	SQLTask *struct {
		Query *struct {
			QueryID string `json:"query_id"`
		} `json:"query"`
		Dashboard *struct {
			DashboardID string `json:"dashboard_id"`
		} `json:"dashboard"`
		Alert *struct {
			AlertID string `json:"alert_id"`
		} `json:"alert"`
		File *struct {
			Path   string `json:"path"`
			Source string `json:"source"`
		} `json:"file"`
		WarehouseID string    `json:"warehouse_id"`
		Parameters  StringMap `json:"parameters"`
	} `json:"sql_task"`

	JobClusterKey     string       `json:"job_cluster_key"`
	ExistingClusterID string       `json:"existing_cluster_id"`
	NewCluster        *apiCluster  `json:"new_cluster"`
	Libraries         []apiLibrary `json:"libraries"`
}

type apiLibrary struct {
	Jar  string `json:"jar"`
	Egg  string `json:"egg"`
	Whl  string `json:"whl"`
	PyPI *struct {
		Package string `json:"package"`
		Repo    string `json:"repo"`
	} `json:"pypi"`
	Maven *struct {
		Coordinates string   `json:"coordinates"`
		Repo        string   `json:"repo"`
		Exclusions  []string `json:"exclusions"`
	} `json:"maven"`
	Cran *struct {
		Package string `json:"package"`
		Repo    string `json:"repo"`
	} `json:"cran"`
}

func (s *apiSettings) settings() *Settings {
	out := &Settings{
		Name:              s.Name,
		Description:       s.Description,
		Tags:              s.Tags,
		TimeoutSeconds:    s.TimeoutSeconds,
		MaxConcurrentRuns: s.MaxConcurrentRuns,
	}
	if e := s.EmailNotifications; e != nil {
		out.EmailNotifications = &EmailNotifications{
			OnStart:               e.OnStart,
			OnSuccess:             e.OnSuccess,
			OnFailure:             e.OnFailure,
			NoAlertForSkippedRuns: e.NoAlertForSkippedRuns,
		}
	}
	if w := s.WebhookNotifications; w != nil {
		out.WebhookNotifications = &WebhookNotifications{
			OnStart:   webhooks(w.OnStart),
			OnSuccess: webhooks(w.OnSuccess),
			OnFailure: webhooks(w.OnFailure),
		}
	}
	if sc := s.Schedule; sc != nil {
		out.Schedule = &Schedule{
			QuartzCronExpression: sc.QuartzCronExpression,
			TimezoneID:           sc.TimezoneID,
			PauseStatus:          PauseStatus(sc.PauseStatus),
		}
	}
	for _, jc := range s.JobClusters {
		out.JobClusters = append(out.JobClusters, JobCluster{Key: jc.JobClusterKey, NewCluster: jc.NewCluster.spec()})
	}
	for _, t := range s.Tasks {
		out.Tasks = append(out.Tasks, t.task())
	}
	return out
}

func webhooks(refs []apiWebhookRef) []Webhook {
	if refs == nil {
		return nil
	}
	out := make([]Webhook, 0, len(refs))
	for _, r := range refs {
		out = append(out, Webhook{ID: r.ID})
	}
	return out
}

func (c *apiCluster) spec() ClusterSpec {
	spec := ClusterSpec{
		SparkVersion:      c.SparkVersion,
		NodeTypeID:        c.NodeTypeID,
		NumWorkers:        c.NumWorkers,
		SparkConf:         c.SparkConf,
		SparkEnvVars:      c.SparkEnvVars,
		CustomTags:        c.CustomTags,
		DriverNodeTypeID:  c.DriverNodeTypeID,
		SSHPublicKeys:     c.SSHPublicKeys,
		EnableElasticDisk: c.EnableElasticDsk,
	}
	if c.Autoscale != nil {
		spec.Autoscale = &Autoscale{MinWorkers: c.Autoscale.MinWorkers, MaxWorkers: c.Autoscale.MaxWorkers}
	}
	for _, is := range c.InitScripts {
		if loc, ok := is.location(); ok {
			spec.InitScripts = append(spec.InitScripts, loc)
		}
	}
	if c.ClusterLogConf != nil {
		if loc, ok := c.ClusterLogConf.location(); ok {
			spec.ClusterLogConf = &loc
		}
	}
	if ds := c.DiskSpec; ds != nil {
		spec.DiskSpec = &DiskSpec{DiskCount: ds.DiskCount, DiskSize: ds.DiskSize}
		if ds.DiskType != nil {
			spec.DiskSpec.DiskType = &DiskType{
				EBSVolumeType:       ds.DiskType.EBSVolumeType,
				AzureDiskVolumeType: ds.DiskType.AzureDiskVolumeType,
			}
		}
	}
	for _, m := range c.MountInfos {
		mi := MountInfo{LocalMountDirPath: m.LocalMountDirPath, RemoteMountDirPath: m.RemoteMountDirPath}
		if m.NetworkFilesystem != nil {
			mi.ServerAddress = m.NetworkFilesystem.ServerAddress
			mi.MountOptions = m.NetworkFilesystem.MountOptions
		}
		spec.ClusterMountInfos = append(spec.ClusterMountInfos, mi)
	}
	return spec
}

func (s *apiStorage) location() (StorageLocation, bool) {
	backends := []struct {
		kind string
		dest *apiDestination
	}{
		{"workspace", s.Workspace},
		{"volumes", s.Volumes},
		{"dbfs", s.DBFS},
		{"s3", s.S3},
		{"file", s.File},
		{"abfss", s.ABFSS},
		{"gcs", s.GCS},
	}
	for _, b := range backends {
		if b.dest != nil {
			return StorageLocation{Kind: b.kind, Destination: b.dest.Destination, Region: b.dest.Region}, true
		}
	}
	return StorageLocation{}, false
}

func (t *apiTask) task() Task {
	task := Task{
		Key:                    t.TaskKey,
		Description:            t.Description,
		TimeoutSeconds:         t.TimeoutSeconds,
		MaxRetries:             t.MaxRetries,
		MinRetryIntervalMillis: t.MinRetryIntervalMillis,
		RetryOnTimeout:         t.RetryOnTimeout,
		Payload:                t.payload(),
		Compute:                t.compute(),
	}
	for _, dep := range t.DependsOn {
		task.DependsOn = append(task.DependsOn, dep.TaskKey)
	}
	for _, lib := range t.Libraries {
		if l := lib.library(); l != nil {
			task.Libraries = append(task.Libraries, l)
		}
	}
	return task
}

// payload picks the first kind present, in PayloadKind declaration order.
func (t *apiTask) payload() Payload {
	switch {
	case t.NotebookTask != nil:
		n := t.NotebookTask
		return NotebookTask{NotebookPath: n.NotebookPath, Source: n.Source, BaseParameters: n.BaseParameters}
	case t.PythonWheelTask != nil:
		p := t.PythonWheelTask
		return PythonWheelTask{PackageName: p.PackageName, EntryPoint: p.EntryPoint, Parameters: p.Parameters, NamedParameters: p.NamedParameters}
	case t.SparkJarTask != nil:
		return SparkJarTask{MainClassName: t.SparkJarTask.MainClassName, Parameters: t.SparkJarTask.Parameters}
	case t.SparkPythonTask != nil:
		p := t.SparkPythonTask
		return SparkPythonTask{PythonFile: p.PythonFile, Parameters: p.Parameters, Source: p.Source}
	case t.SparkSubmitTask != nil:
		return SparkSubmitTask{Parameters: t.SparkSubmitTask.Parameters}
	case t.PipelineTask != nil:
		return PipelineTask{PipelineID: t.PipelineTask.PipelineID, FullRefresh: t.PipelineTask.FullRefresh}
	case t.SQLTask != nil:
		q := t.SQLTask
		out := SQLTask{WarehouseID: q.WarehouseID, Parameters: q.Parameters}
		if q.Query != nil {
			out.QueryID = q.Query.QueryID
		}
		if q.Dashboard != nil {
			out.DashboardID = q.Dashboard.DashboardID
		}
		if q.Alert != nil {
			out.AlertID = q.Alert.AlertID
		}
		if q.File != nil {
			out.File = &SQLFile{Path: q.File.Path, Source: q.File.Source}
		}
		return out
	}
	return nil
}

// compute resolves the binding: job cluster key, then existing cluster id,
// then inline new cluster.
func (t *apiTask) compute() Compute {
	switch {
	case t.JobClusterKey != "":
		return JobClusterRef{Key: t.JobClusterKey}
	case t.ExistingClusterID != "":
		return ExistingCluster{ClusterID: t.ExistingClusterID}
	case t.NewCluster != nil:
		return NewCluster{Spec: t.NewCluster.spec()}
	}
	return nil
}

func (l *apiLibrary) library() Library {
	switch {
	case l.Jar != "":
		return JarLibrary{Path: l.Jar}
	case l.Egg != "":
		return EggLibrary{Path: l.Egg}
	case l.Whl != "":
		return WheelLibrary{Path: l.Whl}
	case l.PyPI != nil:
		return PyPILibrary{Package: l.PyPI.Package, Repo: l.PyPI.Repo}
	case l.Maven != nil:
		return MavenLibrary{Coordinates: l.Maven.Coordinates, Repo: l.Maven.Repo, Exclusions: l.Maven.Exclusions}
	case l.Cran != nil:
		return CranLibrary{Package: l.Cran.Package, Repo: l.Cran.Repo}
	}
	return nil
}
