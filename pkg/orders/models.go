package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderState string

const (
	OrderStateQueued          OrderState = "queued"
	OrderStateUnconfirmed     OrderState = "unconfirmed"
	OrderStateConfirmed       OrderState = "confirmed"
	OrderStatePartiallyFilled OrderState = "partially_filled"
	OrderStateFilled          OrderState = "filled"
	OrderStateRejected        OrderState = "rejected"
	OrderStateCancelled       OrderState = "cancelled"
	OrderStateFailed          OrderState = "failed"
)

type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type TimeInForce string

const (
	TimeInForceGFD TimeInForce = "gfd"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceOPG TimeInForce = "opg"
)

type TriggerType string

const (
	TriggerImmediate TriggerType = "immediate"
	TriggerStop      TriggerType = "stop"
)

type PositionEffect string

const (
	PositionEffectOpen  PositionEffect = "open"
	PositionEffectClose PositionEffect = "close"
)

// Currency is a monetary amount.
type Currency struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	CurrencyID   string          `json:"currency_id"`
}

// StockOrderExecution is a fill of a stock order.
type StockOrderExecution struct {
	ID                 string              `json:"id"`
	Price              decimal.Decimal     `json:"price"`
	Quantity           decimal.Decimal     `json:"quantity"`
	RoundedNotional    decimal.NullDecimal `json:"rounded_notional"`
	Fees               decimal.NullDecimal `json:"fees"`
	SettlementDate     string              `json:"settlement_date"`
	TradeExecutionDate string              `json:"trade_execution_date"`
	Timestamp          time.Time           `json:"timestamp"`
}

// StockOrder is an equity order as returned by the orders endpoints.
type StockOrder struct {
	ID           string `json:"id"`
	RefID        string `json:"ref_id"`
	URL          string `json:"url"`
	Account      string `json:"account"`
	UserUUID     string `json:"user_uuid"`
	Position     string `json:"position"`
	Cancel       string `json:"cancel"`
	Instrument   string `json:"instrument"`
	InstrumentID string `json:"instrument_id"`

	CumulativeQuantity decimal.Decimal     `json:"cumulative_quantity"`
	AveragePrice       decimal.NullDecimal `json:"average_price"`
	Fees               decimal.Decimal     `json:"fees"`
	Price              decimal.NullDecimal `json:"price"`
	StopPrice          decimal.NullDecimal `json:"stop_price"`
	Quantity           decimal.NullDecimal `json:"quantity"`

	State          OrderState     `json:"state"`
	DerivedState   OrderState     `json:"derived_state"`
	Type           OrderType      `json:"type"`
	Side           OrderSide      `json:"side"`
	TimeInForce    TimeInForce    `json:"time_in_force"`
	Trigger        TriggerType    `json:"trigger"`
	RejectReason   string         `json:"reject_reason"`
	MarketHours    string         `json:"market_hours"`
	ExtendedHours  bool           `json:"extended_hours"`
	PositionEffect PositionEffect `json:"position_effect"`

	DollarBasedAmount *Currency `json:"dollar_based_amount"`
	TotalNotional     *Currency `json:"total_notional"`
	ExecutedNotional  *Currency `json:"executed_notional"`

	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastTransactionAt *time.Time `json:"last_transaction_at"`

	Executions []StockOrderExecution `json:"executions"`

	// Symbol is the ticker of Instrument. The API does not return it; it is
	// filled in by symbol resolution and left empty when resolution is disabled
	// or fails.
	Symbol string `json:"symbol,omitempty"`
}

// OptionsOrderExecution is a fill of one leg of an options order.
type OptionsOrderExecution struct {
	ID             string          `json:"id"`
	Price          decimal.Decimal `json:"price"`
	Quantity       decimal.Decimal `json:"quantity"`
	SettlementDate string          `json:"settlement_date"`
	Timestamp      time.Time       `json:"timestamp"`
}

// OptionsOrderLeg is one contract of an options order.
type OptionsOrderLeg struct {
	ID             string                  `json:"id"`
	Option         string                  `json:"option"`
	PositionEffect PositionEffect          `json:"position_effect"`
	RatioQuantity  int                     `json:"ratio_quantity"`
	Side           OrderSide               `json:"side"`
	ExpirationDate string                  `json:"expiration_date"`
	StrikePrice    decimal.Decimal         `json:"strike_price"`
	OptionType     string                  `json:"option_type"`
	Executions     []OptionsOrderExecution `json:"executions"`
}

// OptionsOrder is an options order as returned by the options orders endpoints.
type OptionsOrder struct {
	ID            string `json:"id"`
	RefID         string `json:"ref_id"`
	AccountNumber string `json:"account_number"`
	ChainID       string `json:"chain_id"`
	ChainSymbol   string `json:"chain_symbol"`
	Direction     string `json:"direction"`
	Strategy      string `json:"strategy"`

	OpeningStrategy string `json:"opening_strategy"`
	ClosingStrategy string `json:"closing_strategy"`

	Legs []OptionsOrderLeg `json:"legs"`

	Price             decimal.NullDecimal `json:"price"`
	StopPrice         decimal.NullDecimal `json:"stop_price"`
	Premium           decimal.NullDecimal `json:"premium"`
	ProcessedPremium  decimal.NullDecimal `json:"processed_premium"`
	NetAmount         decimal.NullDecimal `json:"net_amount"`
	Quantity          decimal.Decimal     `json:"quantity"`
	ProcessedQuantity decimal.Decimal     `json:"processed_quantity"`
	PendingQuantity   decimal.Decimal     `json:"pending_quantity"`
	CanceledQuantity  decimal.Decimal     `json:"canceled_quantity"`
	RegulatoryFees    decimal.NullDecimal `json:"regulatory_fees"`

	State        OrderState  `json:"state"`
	DerivedState OrderState  `json:"derived_state"`
	Type         OrderType   `json:"type"`
	TimeInForce  TimeInForce `json:"time_in_force"`
	Trigger      TriggerType `json:"trigger"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
