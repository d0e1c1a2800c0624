// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

//go:build integration

package auth_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/garrison-game/garrison/internal/auth"
)

// register creates a fresh account and returns it with its plaintext password.
func register(ctx context.Context, prefix string) (*auth.Account, string) {
	input := validInput(uniqueUsername(prefix))
	account, err := env.Registration.Register(ctx, input)
	Expect(err).NotTo(HaveOccurred())
	return account, input.Password
}

var _ = Describe("Session lifecycle", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("login", func() {
		It("issues a session that validates", func() {
			account, password := register(ctx, "login")

			session, token, got, err := env.Auth.Login(ctx, account.Username, password)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(account.ID))
			Expect(token).NotTo(BeEmpty())

			validated, err := env.Auth.ValidateSession(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(validated.ID).To(Equal(session.ID))
			Expect(validated.AccountID).To(Equal(account.ID))
		})

		It("accepts the email address as login identifier", func() {
			account, password := register(ctx, "byemail")

			_, _, got, err := env.Auth.Login(ctx, account.Email, password)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(account.ID))
		})

		It("rejects a wrong password without revealing which field was wrong", func() {
			account, _ := register(ctx, "badpass")

			_, _, _, err := env.Auth.Login(ctx, account.Username, "Wrong-Password9")
			Expect(err).To(MatchError(ContainSubstring("invalid username or password")))
		})

		It("rejects an unknown identifier with the same error as a wrong password", func() {
			_, _, _, err := env.Auth.Login(ctx, "nobody_home_1", "Wrong-Password9")
			Expect(err).To(MatchError(ContainSubstring("invalid username or password")))
		})
	})

	Describe("validation and extension", func() {
		It("rejects a token that was never issued", func() {
			_, err := env.Auth.ValidateSession(ctx, "not-a-real-token")
			Expect(err).To(HaveOccurred())
		})

		It("moves the expiry forward on extension", func() {
			account, password := register(ctx, "extend")
			session, token, _, err := env.Auth.Login(ctx, account.Username, password)
			Expect(err).NotTo(HaveOccurred())

			extended, err := env.Auth.ExtendSession(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(extended.ExpiresAt).To(BeTemporally(">=", session.ExpiresAt))

			// The new expiry is persisted, not just returned.
			validated, err := env.Auth.ValidateSession(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(validated.ExpiresAt).To(BeTemporally("~", extended.ExpiresAt, time.Second))
		})
	})

	Describe("logout", func() {
		It("invalidates the session server-side", func() {
			account, password := register(ctx, "logout")
			_, token, _, err := env.Auth.Login(ctx, account.Username, password)
			Expect(err).NotTo(HaveOccurred())

			env.Auth.Logout(ctx, token, "")

			_, err = env.Auth.ValidateSession(ctx, token)
			Expect(err).To(HaveOccurred())
		})

		It("is idempotent for tokens that no longer exist", func() {
			env.Auth.Logout(ctx, "gone-session-token", "gone-remember-token")
		})
	})

	Describe("remember tokens", func() {
		It("redeems a token for a fresh session and rotates the token", func() {
			account, _ := register(ctx, "remember")

			token, err := env.Auth.Remember(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())

			session, sessionToken, newToken, err := env.Auth.RedeemRemember(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.AccountID).To(Equal(account.ID))
			Expect(newToken).NotTo(Equal(token))

			validated, err := env.Auth.ValidateSession(ctx, sessionToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(validated.AccountID).To(Equal(account.ID))
		})

		It("refuses to redeem the same token twice", func() {
			account, _ := register(ctx, "onceonly")

			token, err := env.Auth.Remember(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())

			_, _, _, err = env.Auth.RedeemRemember(ctx, token)
			Expect(err).NotTo(HaveOccurred())

			_, _, _, err = env.Auth.RedeemRemember(ctx, token)
			Expect(err).To(HaveOccurred())
		})

		It("honors the rotated token after redemption", func() {
			account, _ := register(ctx, "rotated")

			token, err := env.Auth.Remember(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())

			_, _, newToken, err := env.Auth.RedeemRemember(ctx, token)
			Expect(err).NotTo(HaveOccurred())

			session, _, _, err := env.Auth.RedeemRemember(ctx, newToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.AccountID).To(Equal(account.ID))
		})

		It("removes the remember token on logout", func() {
			account, _ := register(ctx, "fullout")

			token, err := env.Auth.Remember(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())

			env.Auth.Logout(ctx, "", token)

			_, _, _, err = env.Auth.RedeemRemember(ctx, token)
			Expect(err).To(HaveOccurred())
		})
	})
})
