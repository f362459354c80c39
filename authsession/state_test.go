package authsession_test

import (
	"testing"

	"github.com/jrsteele09/secure-health/authsession"
	"github.com/stretchr/testify/require"
)

func TestStateFlags(t *testing.T) {
	tests := []struct {
		state authsession.State
		want  authsession.AuthStates
	}{
		{authsession.State{}, authsession.AuthStates{}},
		{authsession.State{Phase: authsession.PhaseLoggingIn, Op: authsession.OpLogin}, authsession.AuthStates{IsAuthLoading: true}},
		{authsession.State{Phase: authsession.PhaseLoggingOut, Op: authsession.OpLogout}, authsession.AuthStates{IsLoggingOut: true}},
		{authsession.State{Phase: authsession.PhaseRefreshing, Op: authsession.OpRefresh}, authsession.AuthStates{IsRefreshing: true}},
		{authsession.State{Phase: authsession.PhaseFailed, Op: authsession.OpLogin, Message: "x"}, authsession.AuthStates{IsAuthError: true}},
		{authsession.State{Phase: authsession.PhaseFailed, Op: authsession.OpLogout}, authsession.AuthStates{IsLogoutError: true}},
		{authsession.State{Phase: authsession.PhaseFailed, Op: authsession.OpRefresh}, authsession.AuthStates{IsRefreshingError: true}},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			require.Equal(t, tt.want, tt.state.Flags())
		})
	}
}

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", authsession.State{}.String())
	require.Equal(t, "refreshing", authsession.State{Phase: authsession.PhaseRefreshing, Op: authsession.OpRefresh}.String())
	require.Equal(t, `failed{login, "network down"}`, authsession.State{Phase: authsession.PhaseFailed, Op: authsession.OpLogin, Message: "network down"}.String())
}
