package setup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswersConfigTmp(t *testing.T) {
	tmp, err := answers{
		protocol:     "compound_v3",
		base:         " usdc ",
		snapshot:     "market.yaml",
		listenAddr:   ":8443",
		reload:       "30s",
		tlsDomains:   "risk.example.com, ,api.example.com",
		certCacheDir: "certs",
	}.configTmp()
	require.NoError(t, err)

	assert.Equal(t, "USDC", tmp.BaseCurrency)
	assert.Equal(t, 30*time.Second, tmp.ReloadInterval)
	assert.Equal(t, []string{"risk.example.com", "api.example.com"}, tmp.TLSDomains)
	assert.Equal(t, "certs", tmp.CertCache)

	plain, err := answers{protocol: "aave", reload: "5s", certCacheDir: "certs"}.configTmp()
	require.NoError(t, err)
	assert.Empty(t, plain.TLSDomains)
	assert.Empty(t, plain.CertCache)
}

func TestAnswersConfigTmp_InvalidReload(t *testing.T) {
	for _, reload := range []string{"", "soon", "15"} {
		_, err := answers{protocol: "aave", reload: reload}.configTmp()
		assert.Error(t, err, "reload %q", reload)
	}
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateSymbol("USDC"))
	assert.Error(t, validateSymbol(" "))
	assert.Error(t, validateSymbol("BTC_USDT"))

	assert.NoError(t, validateInterval("1m"))
	assert.Error(t, validateInterval("0s"))
	assert.Error(t, validateInterval("soon"))

	assert.Error(t, validateNotEmpty("  "))
}
