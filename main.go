package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sofa-check/sofa-check/internal/cache"
	"github.com/sofa-check/sofa-check/internal/compat"
	"github.com/sofa-check/sofa-check/internal/config"
	"github.com/sofa-check/sofa-check/internal/feed"
	"github.com/sofa-check/sofa-check/internal/logging"
	"github.com/sofa-check/sofa-check/internal/server"
	"github.com/sofa-check/sofa-check/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath    string
	checkConfig   bool
	checkOnce     bool
	systemVersion string
	modelID       string
	showVersion   bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkConfig {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["feed_url"] = cfg.Global.FeedURL
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动遵循“配置 → 磁盘缓存 → HTTP client → Fetcher”顺序，
	// 单次检查与常驻服务共享同一条抓取管线。
	store, err := cache.NewStore(cfg.Global.CachePath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	client := feed.NewClient(cfg.Global.FetchTimeout.DurationValue())
	fetcher := feed.NewFetcher(client, store, logger, cfg.Global.FeedURL, cfg.Global.UserAgent)

	if opts.checkOnce {
		return runCheckOnce(opts, fetcher, logger)
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["feed_url"] = cfg.Global.FeedURL
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, fetcher, store, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// runCheckOnce 执行一次性检查并把输出行打印到 stdout。
// 错误形态的行同样以 0 退出：输出 schema 稳定是对调用方的契约。
func runCheckOnce(opts cliOptions, fetcher *feed.Fetcher, logger *logrus.Logger) int {
	if opts.systemVersion == "" || opts.modelID == "" {
		fmt.Fprintln(stdErr, "--check 需要同时提供 --system-version 与 --model")
		return 2
	}

	facts := compat.SystemFacts{
		SystemVersion:   opts.systemVersion,
		ModelIdentifier: opts.modelID,
	}

	result := fetcher.Fetch(context.Background())
	row := compat.BuildRow(facts, compat.Evaluate(result.Body, facts.ModelIdentifier))

	fields := logging.EvalFields(row.ModelIdentifier, row.Status, row.IsCompatible)
	fields["action"] = "check_once"
	fields["feed_source"] = string(result.Source)
	logger.WithFields(fields).Info("检查完成")

	encoder := json.NewEncoder(stdOut)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(row); err != nil {
		fmt.Fprintf(stdErr, "输出结果失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("sofa-check", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag    string
		checkConfig   bool
		checkOnce     bool
		systemVersion string
		modelID       string
		showVer       bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 SOFA_CHECK_CONFIG 覆盖）")
	fs.BoolVar(&checkConfig, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&checkOnce, "check", false, "执行一次兼容性检查并输出结果行")
	fs.StringVar(&systemVersion, "system-version", "", "当前系统版本，如 14.5（--check 模式必填）")
	fs.StringVar(&modelID, "model", "", "硬件机型标识，如 MacBookPro18,1（--check 模式必填）")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("SOFA_CHECK_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:    path,
		checkConfig:   checkConfig,
		checkOnce:     checkOnce,
		systemVersion: systemVersion,
		modelID:       modelID,
		showVersion:   showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, fetcher *feed.Fetcher, store cache.Store, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:  logger,
		Fetcher: fetcher,
		Store:   store,
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
