package sources

import "strings"

// SplitTSCode splits a vendor ts_code (e.g. "000001.SZ") into its bare code
// and canonical domain.Exchange bucket.
func SplitTSCode(tsCode string) (code string, exchange string) {
	parts := strings.SplitN(tsCode, ".", 2)
	code = parts[0]
	if len(parts) != 2 {
		return code, "other"
	}
	switch strings.ToUpper(parts[1]) {
	case "SH":
		return code, "primary"
	case "SZ":
		return code, "secondary"
	default:
		return code, "other"
	}
}

// LotsToShares converts a vendor volume expressed in 手 (lots of 100 shares)
// to shares. AKShare-style sources already report shares and must not call
// this.
func LotsToShares(lots float64) float64 {
	return lots * 100
}

// ThousandYuanToYuan converts a vendor amount expressed in 千元 (thousands of
// yuan) to yuan.
func ThousandYuanToYuan(thousands float64) float64 {
	return thousands * 1000
}
