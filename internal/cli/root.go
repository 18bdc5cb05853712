package cli

import (
	"io"

	"ForecastDebate/internal/app"
	"ForecastDebate/internal/config"

	"github.com/spf13/cobra"
)

// Builder 组装运行命令所需的依赖
type Builder func() (*app.App, error)

// DefaultBuilder 从 config/config.yaml 与 .env 构建
func DefaultBuilder() (*app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return app.Build(cfg, cfg.Log.NewLogger())
}

// NewRootCmd debatectl 根命令
func NewRootCmd(build Builder, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "debatectl",
		Short:         "Run and inspect AI forecast debates from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(
		newRunCmd(build),
		newShowCmd(build),
		newResultsCmd(build),
		newListCmd(build),
	)
	return root
}

// withApp 构建依赖，执行 fn 后关闭数据库
func withApp(build Builder, fn func(a *app.App) error) error {
	a, err := build()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
