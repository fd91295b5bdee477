package model

// MintRecord is the notification emitted once per minted position.
type MintRecord struct {
	ID          string `json:"id"`
	ChainID     uint64 `json:"chain_id"`
	Pool        string `json:"pool"`
	Caller      string `json:"caller"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TokenID     string `json:"token_id"`
	Liquidity   string `json:"liquidity"`
	Amount0     string `json:"amount0"`
	Amount1     string `json:"amount1"`
	Refund0     string `json:"refund0"`
	Refund1     string `json:"refund1"`
	CurrentTick int32  `json:"current_tick"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
	Width       int32  `json:"width"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	CreatedAt   string `json:"created_at"`
}
