// Package workflow models job definitions as read from the remote workspace
// service. Values are read-only snapshots; nothing in this package mutates a
// workflow after it has been decoded.
package workflow

import (
	"errors"
	"time"
)

// ErrMissingSettings reports a detail fetch that succeeded but carried no
// settings object.
var ErrMissingSettings = errors.New("workflow has no settings")

// Status is the display status of a workflow. The jobs API does not expose a
// lifecycle status, so every listed workflow is Active.
type Status string

const StatusActive Status = "Active"

// Summary is a workflow as returned by the listing call.
type Summary struct {
	JobID           int64     `json:"job_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	CreatedTime     int64     `json:"created_time,omitempty"`  // ms since epoch
	ModifiedTime    int64     `json:"modified_time,omitempty"` // ms since epoch
	CreatorUserName string    `json:"creator_user_name,omitempty"`
	Status          Status    `json:"status"`
	Tags            StringMap `json:"tags,omitempty"`
}

// DisplayName returns the workflow name, or "Unnamed Job" when empty.
func (s Summary) DisplayName() string {
	if s.Name == "" {
		return "Unnamed Job"
	}
	return s.Name
}

// Detail is a Summary plus the full settings object and the most recent runs.
// Settings is nil when the service returned a job without settings.
type Detail struct {
	Summary
	Settings   *Settings `json:"settings,omitempty"`
	RecentRuns []Run     `json:"recent_runs,omitempty"`
}

// MaxRecentRuns bounds Detail.RecentRuns.
const MaxRecentRuns = 5

// Run is one historical execution of a workflow.
type Run struct {
	RunID          int64  `json:"run_id"`
	StartTime      int64  `json:"start_time,omitempty"`
	EndTime        int64  `json:"end_time,omitempty"`
	LifeCycleState string `json:"state"`
	ResultState    string `json:"result_state,omitempty"`
}

// Settings is the job settings object. Pointer and nil-able fields are
// optional; a nil value means the service did not send the field.
type Settings struct {
	Name                 string
	Description          string
	Tags                 StringMap
	TimeoutSeconds       *int
	MaxConcurrentRuns    *int
	EmailNotifications   *EmailNotifications
	WebhookNotifications *WebhookNotifications
	Schedule             *Schedule
	JobClusters          []JobCluster
	Tasks                []Task
}

// EmailNotifications lists addresses notified per run event.
type EmailNotifications struct {
	OnStart               []string
	OnSuccess             []string
	OnFailure             []string
	NoAlertForSkippedRuns *bool
}

// WebhookNotifications lists webhook destinations notified per run event.
type WebhookNotifications struct {
	OnStart   []Webhook
	OnSuccess []Webhook
	OnFailure []Webhook
}

// Webhook references a notification destination by id.
type Webhook struct {
	ID string
}

// PauseStatus is the schedule pause state.
type PauseStatus string

const (
	Paused   PauseStatus = "PAUSED"
	Unpaused PauseStatus = "UNPAUSED"
)

// Schedule is a Quartz cron trigger. PauseStatus is empty when unset.
type Schedule struct {
	QuartzCronExpression string
	TimezoneID           string
	PauseStatus          PauseStatus
}

// JobCluster is a named compute spec shared by tasks of one job.
type JobCluster struct {
	Key        string
	NewCluster ClusterSpec
}

// ClusterSpec describes a cluster to create for a run. NumWorkers and
// Autoscale are mutually exclusive in well-formed data.
type ClusterSpec struct {
	SparkVersion      string
	NodeTypeID        string
	NumWorkers        *int
	Autoscale         *Autoscale
	SparkConf         StringMap
	SparkEnvVars      StringMap
	CustomTags        StringMap
	InitScripts       []StorageLocation
	DriverNodeTypeID  string
	SSHPublicKeys     []string
	ClusterLogConf    *StorageLocation
	EnableElasticDisk *bool
	DiskSpec          *DiskSpec
	ClusterMountInfos []MountInfo
}

// Autoscale bounds the worker count.
type Autoscale struct {
	MinWorkers int
	MaxWorkers int
}

// StorageLocation is a destination in one storage backend, used for init
// scripts and cluster log delivery. Kind is the backend key ("workspace",
// "volumes", "dbfs", "s3", "file", "abfss", "gcs").
type StorageLocation struct {
	Kind        string
	Destination string
	Region      string
}

// DiskSpec describes attached disks.
type DiskSpec struct {
	DiskCount *int
	DiskSize  *int
	DiskType  *DiskType
}

// DiskType carries the cloud-specific volume type; at most one field is set.
type DiskType struct {
	EBSVolumeType       string
	AzureDiskVolumeType string
}

// MountInfo describes a network filesystem mount.
type MountInfo struct {
	LocalMountDirPath  string
	RemoteMountDirPath string
	ServerAddress      string
	MountOptions       string
}

// Task is one step of a job. Payload is nil when the service sent a task kind
// this package does not model. Compute is nil when the task inherits the job
// default compute.
type Task struct {
	Key                    string
	Description            string
	DependsOn              []string
	TimeoutSeconds         *int
	MaxRetries             *int
	MinRetryIntervalMillis *int
	RetryOnTimeout         *bool
	Payload                Payload
	Compute                Compute
	Libraries              []Library
}

// FormatTimestamp renders a millisecond epoch timestamp for display.
func FormatTimestamp(ms int64) string {
	if ms <= 0 {
		return "Unknown"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05 UTC")
}
