package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ForecastDebate/internal/adapter"
	"ForecastDebate/internal/config"
	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"
	"ForecastDebate/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// 缺少价格时的默认隐含概率
const defaultPrice = 0.5

func init() {
	adapter.Register(config.ProviderPolymarket, NewPolymarketAdapter)
}

type Adapter struct {
	cfg        config.ProviderConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewPolymarketAdapter(cfg config.ProviderConfig, logger *logrus.Logger) interfaces.MarketProvider {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewProviderClient(config.ProviderPolymarket, cfg, logger),
		logger:     logger,
	}
}

// GetName ========== 实现MarketProvider接口 ==========
func (p *Adapter) GetName() string {
	return "Polymarket"
}

// FetchMarket 调用 Gamma /events/{id}，每个子市场转为一个选项
func (p *Adapter) FetchMarket(ctx context.Context, marketID string) (*model.Market, error) {
	marketID = strings.TrimSpace(marketID)
	if marketID == "" {
		return nil, fmt.Errorf("%w: empty market id", interfaces.ErrMarketNotFound)
	}
	eventURL := fmt.Sprintf("%s/events/%s", strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(marketID))
	log := p.logger.WithFields(logrus.Fields{"platform": p.GetName(), "market_id": marketID})

	resp, err := httpclient.DoWithRetry(ctx, p.httpClient, p.cfg.RetryCount, log, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("获取Polymarket市场失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrMarketNotFound, marketID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Polymarket API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var event model.GammaEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, fmt.Errorf("解析Polymarket市场失败: %w", err)
	}
	market := p.convert(event)
	if market.ID == "" {
		market.ID = marketID
	}
	log.WithField("outcomes", len(market.Outcomes)).Debug("市场拉取成功")
	return market, nil
}

func (p *Adapter) convert(event model.GammaEvent) *model.Market {
	return &model.Market{
		ID:          event.ID,
		Slug:        event.Slug,
		Question:    event.Title,
		Description: event.Description,
		Active:      event.Active,
		Closed:      event.Closed,
		Volume:      event.Volume.Ptr(),
		Outcomes:    p.buildOutcomes(event),
	}
}

// buildOutcomes 单个二元市场直接展开其 outcomes；多选项事件每个子市场一个选项
func (p *Adapter) buildOutcomes(event model.GammaEvent) []model.Outcome {
	if len(event.Markets) == 1 && len(event.Markets[0].Outcomes) > 1 {
		m := event.Markets[0]
		outcomes := make([]model.Outcome, 0, len(m.Outcomes))
		for i, name := range m.Outcomes {
			o := outcomeFromMarket(m)
			o.Name = name
			o.Price = p.priceAt(m.OutcomePrices, i)
			outcomes = append(outcomes, o)
		}
		return outcomes
	}

	outcomes := make([]model.Outcome, 0, len(event.Markets))
	for _, m := range event.Markets {
		o := outcomeFromMarket(m)
		o.Name = m.GroupItemTitle
		if strings.TrimSpace(o.Name) == "" {
			o.Name = m.Question
		}
		o.Price = p.priceAt(m.OutcomePrices, 0)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func outcomeFromMarket(m model.GammaMarket) model.Outcome {
	return model.Outcome{
		Volume:         m.VolumeNum.Ptr(),
		Shares:         m.Volume.Ptr(),
		PriceChange24h: m.OneDayPriceChange.Ptr(),
		Liquidity:      m.LiquidityNum.Ptr(),
	}
}

func (p *Adapter) priceAt(prices model.StringArray, i int) float64 {
	if i >= len(prices) {
		return defaultPrice
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(prices[i]), 64)
	if err != nil {
		p.logger.Warnf("转换价格失败: %v", err)
		return defaultPrice
	}
	return price
}
