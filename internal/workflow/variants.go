package workflow

// PayloadKind names a task payload variant. The declaration order is the
// precedence used when decoding malformed tasks that carry several kinds.
type PayloadKind string

const (
	KindNotebook    PayloadKind = "notebook"
	KindPythonWheel PayloadKind = "python_wheel"
	KindSparkJar    PayloadKind = "spark_jar"
	KindSparkPython PayloadKind = "spark_python"
	KindSparkSubmit PayloadKind = "spark_submit"
	KindPipeline    PayloadKind = "pipeline"
	KindSQL         PayloadKind = "sql"
)

// Payload is the executable part of a task. Exactly one implementation is set
// per task.
type Payload interface {
	Kind() PayloadKind
	isPayload()
}

type NotebookTask struct {
	NotebookPath   string
	Source         string
	BaseParameters StringMap
}

type PythonWheelTask struct {
	PackageName     string
	EntryPoint      string
	Parameters      []string
	NamedParameters StringMap
}

type SparkJarTask struct {
	MainClassName string
	Parameters    []string
}

type SparkPythonTask struct {
	PythonFile string
	Parameters []string
	Source     string
}

type SparkSubmitTask struct {
	Parameters []string
}

type PipelineTask struct {
	PipelineID  string
	FullRefresh *bool
}

// SQLTask runs one of a saved query, dashboard, alert or file on a warehouse.
type SQLTask struct {
	QueryID     string
	DashboardID string
	AlertID     string
	File        *SQLFile
	WarehouseID string
	Parameters  StringMap
}

type SQLFile struct {
	Path   string
	Source string
}

func (NotebookTask) Kind() PayloadKind    { return KindNotebook }
func (PythonWheelTask) Kind() PayloadKind { return KindPythonWheel }
func (SparkJarTask) Kind() PayloadKind    { return KindSparkJar }
func (SparkPythonTask) Kind() PayloadKind { return KindSparkPython }
func (SparkSubmitTask) Kind() PayloadKind { return KindSparkSubmit }
func (PipelineTask) Kind() PayloadKind    { return KindPipeline }
func (SQLTask) Kind() PayloadKind         { return KindSQL }

func (NotebookTask) isPayload()    {}
func (PythonWheelTask) isPayload() {}
func (SparkJarTask) isPayload()    {}
func (SparkPythonTask) isPayload() {}
func (SparkSubmitTask) isPayload() {}
func (PipelineTask) isPayload()    {}
func (SQLTask) isPayload()         {}

// Compute binds a task to the cluster it runs on.
type Compute interface {
	isCompute()
}

// JobClusterRef points at a JobCluster of the same job by key.
type JobClusterRef struct {
	Key string
}

// ExistingCluster runs the task on an all-purpose cluster.
type ExistingCluster struct {
	ClusterID string
}

// NewCluster creates a cluster for this task only.
type NewCluster struct {
	Spec ClusterSpec
}

func (JobClusterRef) isCompute()   {}
func (ExistingCluster) isCompute() {}
func (NewCluster) isCompute()      {}

// Library is a dependency installed on the task cluster.
type Library interface {
	isLibrary()
}

type JarLibrary struct{ Path string }
type EggLibrary struct{ Path string }
type WheelLibrary struct{ Path string }

type PyPILibrary struct {
	Package string
	Repo    string
}

type MavenLibrary struct {
	Coordinates string
	Repo        string
	Exclusions  []string
}

type CranLibrary struct {
	Package string
	Repo    string
}

func (JarLibrary) isLibrary()   {}
func (EggLibrary) isLibrary()   {}
func (WheelLibrary) isLibrary() {}
func (PyPILibrary) isLibrary()  {}
func (MavenLibrary) isLibrary() {}
func (CranLibrary) isLibrary()  {}
