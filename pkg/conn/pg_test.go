package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	testCases := []struct {
		desc string
		opt  Option
		dsn  string
		err  bool
	}{
		{
			desc: "defaults",
			dsn:  "postgres://localhost:5432?sslmode=disable",
		},
		{
			desc: "full",
			opt: Option{
				Host:     "db",
				Port:     6432,
				User:     "sim",
				Password: "p@ss",
				Database: "stocksim",
				SSLMode:  "require",
				Params:   map[string]string{"application_name": "stocksim", "": "skip"},
			},
			dsn: "postgres://sim:p%40ss@db:6432/stocksim?application_name=stocksim&sslmode=require",
		},
		{
			desc: "user without password",
			opt:  Option{User: "sim", Database: "stocksim"},
			dsn:  "postgres://sim@localhost:5432/stocksim?sslmode=disable",
		},
		{
			desc: "conn string wins",
			opt:  Option{Host: "ignored", ConnString: "host=db user=sim"},
			dsn:  "host=db user=sim",
		},
		{
			desc: "bad port",
			opt:  Option{Port: 70000},
			err:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			dsn, err := tc.opt.dsn()
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.dsn, dsn)
		})
	}
}

func TestRedacted(t *testing.T) {
	assert.Equal(t, "localhost", Option{Password: "secret"}.redacted())
	assert.Equal(t, "db:5432", Option{ConnString: "postgres://u:secret@db:5432/x"}.redacted())
	assert.Equal(t, "<conn string>", Option{ConnString: "host=db password=secret"}.redacted())
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Nil(t, c.DB())
	assert.NoError(t, c.Close())
}
