package executor

import (
	"os"
	"path/filepath"
	"time"
)

// Conf 执行器配置
type Conf struct {
	// Workspace 根目录，stage 在 <workspace>/<run-id>/<stage> 下执行
	Workspace string `mapstructure:"workspace"`
	// Shell 默认 shell
	Shell string `mapstructure:"shell"`
	// MaxOutputBytes 每个 step 保留的 stdout/stderr 尾部字节数
	MaxOutputBytes int `mapstructure:"maxOutputBytes"`
	// KeepWorkspace 为 false 时 stage 结束后删除工作目录
	KeepWorkspace bool `mapstructure:"keepWorkspace"`
	// DefaultStepTimeout 未设置 timeout 的 step 使用
	DefaultStepTimeout time.Duration   `mapstructure:"defaultStepTimeout"`
	HealthCheck        HealthCheckConf `mapstructure:"healthCheck"`
}

func (c *Conf) SetDefaults() {
	if c.Workspace == "" {
		c.Workspace = filepath.Join(os.TempDir(), "conveyor")
	}
	if c.Shell == "" {
		c.Shell = "sh"
	}
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = 64 * 1024
	}
	if c.DefaultStepTimeout <= 0 {
		c.DefaultStepTimeout = time.Hour
	}
	if c.HealthCheck.Attempts <= 0 {
		c.HealthCheck.Attempts = 5
	}
	if c.HealthCheck.Interval <= 0 {
		c.HealthCheck.Interval = 5 * time.Second
	}
	if c.HealthCheck.Timeout <= 0 {
		c.HealthCheck.Timeout = 10 * time.Second
	}
}
