package orchestrator

type Driver interface {
	DriverType() string
}

type DockerEnv struct {
	Registry       string
	DockerUsername string
	DockerPassword string
	ShareDir       string
}

type DockerDriver struct {
	ImageName string
	Tag       string
	DockerEnv
}

func (p DockerDriver) DriverType() string {
	return "docker"
}

type LocalDriver struct {
	TrainerDir string
	PythonPath string
}

func (p LocalDriver) DriverType() string {
	return "local"
}

type Resources struct {
	AllocationCores     int
	AllocationMhz       int
	AllocationMemory    int
	AllocationMemoryMax int
}

type CloudCredentials struct {
	AwsAccessKey       string
	AwsAccessSecret    string
	AwsRegionName      string
	AzureAccountName   string
	AzureAccountKey    string
	GcpCredentialsFile string
}

type Job interface {
	GetJobName() string

	JobTemplatePath() string
}

// TrainJob launches the python trainer against a validated config written to
// shared storage. The RunToken lets the job report status and logs back.
type TrainJob struct {
	JobName string
	RunId   string

	ConfigPath       string
	PlatformEndpoint string
	RunToken         string

	WandbApiKey string

	Driver           Driver
	Resources        Resources
	CloudCredentials CloudCredentials
}

func (j TrainJob) GetJobName() string {
	return j.JobName
}

func (j TrainJob) JobTemplatePath() string {
	return "train"
}
