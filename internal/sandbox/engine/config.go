package engine

const (
	defaultMaxOutputBytes  int64 = 1024 * 1024
	defaultProbeIntervalMs int64 = 10
)

// Config controls sandbox engine behavior.
type Config struct {
	CgroupRoot      string `yaml:"cgroupRoot"`
	HelperPath      string `yaml:"helperPath"`
	SeccompProfile  string `yaml:"seccompProfile"`
	EnableCgroup    bool   `yaml:"enableCgroup"`
	EnableSeccomp   bool   `yaml:"enableSeccomp"`
	MaxOutputBytes  int64  `yaml:"maxOutputBytes"`
	ProbeIntervalMs int64  `yaml:"probeIntervalMs"`
}
