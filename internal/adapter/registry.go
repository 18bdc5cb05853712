package adapter

import (
	"fmt"
	"sort"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// ProviderRegistry 按配置实例化的市场数据源
type ProviderRegistry struct {
	cfg       *config.Config
	logger    *logrus.Logger
	providers map[string]interfaces.MarketProvider
}

func NewProviderRegistry(cfg *config.Config, logger *logrus.Logger) *ProviderRegistry {
	r := &ProviderRegistry{
		cfg:       cfg,
		logger:    logger,
		providers: make(map[string]interfaces.MarketProvider),
	}
	r.initFromFactories()
	return r
}

// initFromFactories 配置中存在且已注册工厂的数据源才会被实例化
func (r *ProviderRegistry) initFromFactories() {
	for _, name := range ListFactories() {
		providerCfg, ok := r.cfg.Providers[name]
		if !ok {
			r.logger.WithField("provider", name).Debug("配置中未启用该数据源")
			continue
		}
		factory, _ := GetFactory(name)
		ins := factory(providerCfg, r.logger)
		if ins == nil {
			r.logger.WithField("provider", name).Error("工厂函数返回nil适配器实例")
			continue
		}
		r.providers[name] = ins
		r.logger.WithFields(logrus.Fields{"provider": name, "name": ins.GetName()}).Info("市场数据源初始化成功")
	}
}

// Names 已初始化的数据源名称
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get 获取数据源实例
func (r *ProviderRegistry) Get(name string) (interfaces.MarketProvider, error) {
	ins, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("数据源%s未初始化（已初始化：%v）", name, r.Names())
	}
	return ins, nil
}
