package model

// PoolState is a read-only snapshot of a V3 pool.
type PoolState struct {
	Address      string `json:"address"`
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
	Fee          uint32 `json:"fee"`
	TickSpacing  int32  `json:"tick_spacing"`
	Tick         int32  `json:"tick"`
	SqrtPriceX96 string `json:"sqrt_price_x96,omitempty"`
}
