package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"peelojuice-staff/internal/apierror"
	"peelojuice-staff/internal/model"
)

func TestAuthServiceLoginPostsCredentials(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.responses[pathLogin] = `{"access_token":"A","refresh_token":"R","user":{"id":7,"full_name":"Sam","is_staff":true,"assigned_branch":{"id":3,"name":"Downtown"}}}`
	svc := NewAuthService(api)

	resp, err := svc.Login(context.Background(), " sam@example.com ", "secret")
	require.NoError(t, err)
	require.Equal(t, "A", resp.AccessToken)
	require.Equal(t, "Downtown", resp.User.AssignedBranch.Name)

	calls := api.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "POST", calls[0].method)
	require.Equal(t, model.LoginRequest{EmailOrPhone: "sam@example.com", Password: "secret"}, calls[0].body)
}

func TestAuthServiceShapeChecksSkipNetwork(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	svc := NewAuthService(api)
	ctx := context.Background()

	_, err := svc.Login(ctx, "", "secret")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = svc.Login(ctx, "sam", "  ")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = svc.Register(ctx, model.RegisterRequest{Email: "a@b.c"})
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = svc.VerifyOTP(ctx, "a@b.c", "")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = svc.ResendOTP(ctx, "")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = svc.RequestPasswordReset(ctx, "")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = svc.VerifyPasswordResetOTP(ctx, "a@b.c", "")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = svc.ConfirmPasswordReset(ctx, "a@b.c", "")
	require.ErrorIs(t, err, model.ErrInvalidInput)

	require.Empty(t, api.Calls())
}

func TestAuthServiceEndpoints(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.responses[pathVerifyOTP] = `{"access":"A","refresh":"R","user":{"id":1,"is_staff":true}}`
	api.responses[pathResendOTP] = `{"message":"sent"}`
	svc := NewAuthService(api)
	ctx := context.Background()

	_, err := svc.Register(ctx, model.RegisterRequest{
		Email: "a@b.c", PhoneNumber: "555", Password: "secret1", ConfirmPassword: "secret1",
		FirstName: "A", LastName: "B",
	})
	require.NoError(t, err)

	verified, err := svc.VerifyOTP(ctx, "a@b.c", "123456")
	require.NoError(t, err)
	require.Equal(t, "A", verified.Access)

	resent, err := svc.ResendOTP(ctx, "a@b.c")
	require.NoError(t, err)
	require.Equal(t, "sent", resent.Message)

	_, err = svc.RequestPasswordReset(ctx, "a@b.c")
	require.NoError(t, err)
	_, err = svc.VerifyPasswordResetOTP(ctx, "a@b.c", "123456")
	require.NoError(t, err)
	_, err = svc.ConfirmPasswordReset(ctx, "a@b.c", "newsecret")
	require.NoError(t, err)

	var paths []string
	for _, c := range api.Calls() {
		paths = append(paths, c.path)
	}
	require.Equal(t, []string{
		pathRegister, pathVerifyOTP, pathResendOTP,
		pathPasswordResetRequest, pathPasswordResetVerify, pathPasswordResetConfirm,
	}, paths)
}

func TestRequestPasswordResetKeepsPartialFailure(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.errs[pathPasswordResetRequest] = apierror.FromResponse("POST", pathPasswordResetRequest, 500,
		[]byte(`{"error":"Email delivery failed","password_reset_otp":"123456"}`))
	svc := NewAuthService(api)

	_, err := svc.RequestPasswordReset(context.Background(), "a@b.c")
	require.ErrorIs(t, err, model.ErrServer)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.True(t, apiErr.PartialFailure())
}
