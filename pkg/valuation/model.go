// 文件: pkg/valuation/model.go
// 估值请求与估值记录

package valuation

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// 主题
// =============================================================================

const (
	// Kafka
	TopicValuations      = "option_valuations"       // 估值结果流
	TopicPricingRequests = "option_pricing_requests" // 批量估值请求

	// NATS
	SubjectPricingRequest  = "pricing.request" // request/reply
	SubjectValuationPrefix = "valuation."      // valuation.{symbol}
	QueueGroup             = "pricer"
)

var (
	ErrMarketDataUnavailable = errors.New("market data unavailable")
	ErrInvalidRequest        = errors.New("invalid valuation request")
)

// =============================================================================
// Request - 估值请求
// =============================================================================

// Request 一次估值请求
//
// 剩余期限二选一: Expiry 非空时按估值日折算，否则使用 TimeToExpiry。
// Spot/Sigma/DividendYield 任一缺省时，从该标的最新行情快照补齐。
type Request struct {
	RequestID    string     `json:"request_id,omitempty"`
	Symbol       string     `json:"symbol"`
	Type         string     `json:"type"`            // CALL / PUT
	Style        string     `json:"style,omitempty"` // 默认 EUROPEAN
	Strike       float64    `json:"strike"`
	Expiry       *time.Time `json:"expiry,omitempty"`
	TimeToExpiry float64    `json:"time_to_expiry,omitempty"`

	Spot          *float64 `json:"spot,omitempty"`
	Sigma         *float64 `json:"sigma,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
}

// needsSnapshot 是否需要从行情快照补齐
func (r *Request) needsSnapshot() bool {
	return r.Spot == nil || r.Sigma == nil || r.DividendYield == nil
}

// =============================================================================
// Valuation - 估值记录
// =============================================================================

// Valuation 一次估值的完整输入和输出，落库并广播
type Valuation struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	ValuationID int64  `gorm:"column:valuation_id;uniqueIndex" json:"valuation_id,string"` // 雪花ID
	RequestID   string `gorm:"column:request_id;type:varchar(64)" json:"request_id,omitempty"`

	Symbol       string          `gorm:"column:symbol;type:varchar(32);index" json:"symbol"`
	OptionType   string          `gorm:"column:option_type;type:varchar(8)" json:"type"`
	OptionStyle  string          `gorm:"column:option_style;type:varchar(16)" json:"style"`
	Strike       decimal.Decimal `gorm:"column:strike;type:decimal(32,18)" json:"strike"`
	TimeToExpiry decimal.Decimal `gorm:"column:time_to_expiry;type:decimal(32,18)" json:"time_to_expiry"`

	// 市场输入
	Spot          decimal.Decimal `gorm:"column:spot;type:decimal(32,18)" json:"spot"`
	Sigma         decimal.Decimal `gorm:"column:sigma;type:decimal(32,18)" json:"sigma"`
	DividendYield decimal.Decimal `gorm:"column:dividend_yield;type:decimal(32,18)" json:"dividend_yield"`
	RiskFreeRate  decimal.Decimal `gorm:"column:risk_free_rate;type:decimal(32,18)" json:"risk_free_rate"`
	PricingDate   time.Time       `gorm:"column:pricing_date" json:"pricing_date"`

	// 输出
	Price       decimal.Decimal `gorm:"column:price;type:decimal(32,18)" json:"price"`
	Delta       decimal.Decimal `gorm:"column:delta;type:decimal(32,18)" json:"delta"`
	Gamma       decimal.Decimal `gorm:"column:gamma;type:decimal(32,18)" json:"gamma"`
	Theta       decimal.Decimal `gorm:"column:theta;type:decimal(32,18)" json:"theta"`
	Vega        decimal.Decimal `gorm:"column:vega;type:decimal(32,18)" json:"vega"`
	Rho         decimal.Decimal `gorm:"column:rho;type:decimal(32,18)" json:"rho"`
	ParityPrice decimal.Decimal `gorm:"column:parity_price;type:decimal(32,18)" json:"parity_price"` // 由平价关系推出的另一边价格

	CreatedAt int64 `gorm:"column:created_at" json:"created_at"`
}

func (Valuation) TableName() string {
	return "option_valuations"
}

// Valuation 作为 Kafka 消息发送 (实现 kafka.Message)
func (v *Valuation) Topic() string          { return TopicValuations }
func (v *Valuation) Key() string            { return v.Symbol }
func (v *Valuation) Value() ([]byte, error) { return json.Marshal(v) }

// Subject NATS 广播主题
func (v *Valuation) Subject() string {
	return SubjectValuationPrefix + v.Symbol
}

// =============================================================================
// Reply - request/reply 应答
// =============================================================================

// Reply 同步定价应答，二者只有一个非空
type Reply struct {
	RequestID string     `json:"request_id,omitempty"`
	Valuation *Valuation `json:"valuation,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// BatchResult 批量估值中单个请求的结果
type BatchResult struct {
	Request   *Request
	Valuation *Valuation
	Err       error
}
