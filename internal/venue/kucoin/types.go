package kucoin

import "encoding/json"

// envelope is KuCoin's uniform response wrapper. Code "200000" means success;
// anything else carries an error message.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// level1Data is the /api/v1/market/orderbook/level1 payload.
type level1Data struct {
	Time        int64  `json:"time"`
	Price       string `json:"price"`
	BestBid     string `json:"bestBid"`
	BestBidSize string `json:"bestBidSize"`
	BestAsk     string `json:"bestAsk"`
	BestAskSize string `json:"bestAskSize"`
}

// symbolData is one entry of /api/v2/symbols.
type symbolData struct {
	Symbol        string `json:"symbol"`
	BaseCurrency  string `json:"baseCurrency"`
	QuoteCurrency string `json:"quoteCurrency"`
	EnableTrading bool   `json:"enableTrading"`
}

// tradeFeeData is one entry of the signed /api/v1/trade-fees response.
type tradeFeeData struct {
	Symbol       string `json:"symbol"`
	TakerFeeRate string `json:"takerFeeRate"`
	MakerFeeRate string `json:"makerFeeRate"`
}
