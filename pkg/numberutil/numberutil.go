package numberutil

import "math/big"

func AbsInt64(a int64) int64 {
	if a < 0 {
		return -a
	}

	return a
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

// WeiToEther converts a wei amount to a floating ether amount for display
// purposes only. Never use the result for on-chain arithmetic.
func WeiToEther(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18)).Float64()
	return f
}

// EtherToWei converts an ether amount to wei, truncating below 1 wei.
func EtherToWei(ether float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(ether), big.NewFloat(1e18)).Int(nil)
	return wei
}
