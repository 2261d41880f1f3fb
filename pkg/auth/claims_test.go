package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"
)

func signed(claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))

	if err != nil {
		panic(err)
	}

	return token
}

func TestInspectToken(t *testing.T) {
	Convey("Given a delegated access token", t, func() {
		exp := time.Now().Add(time.Hour).Truncate(time.Second)

		raw := signed(jwt.MapClaims{
			"sub":                "abc",
			"preferred_username": "ada@example.com",
			"name":               "Ada",
			"tid":                "tenant",
			"aud":                "00000003-0000-0000-c000-000000000000",
			"scp":                "User.Read Mail.Read",
			"exp":                exp.Unix(),
		})

		Convey("When inspecting it", func() {
			claims, err := InspectToken("Bearer " + raw)

			Convey("Then the claims are decoded without verification", func() {
				So(err, ShouldBeNil)
				So(claims.User, ShouldEqual, "ada@example.com")
				So(claims.TenantID, ShouldEqual, "tenant")
				So(claims.Scopes, ShouldResemble, []string{"User.Read", "Mail.Read"})
				So(claims.Audience, ShouldHaveLength, 1)
				So(claims.ExpiresAt.Equal(exp), ShouldBeTrue)
				So(claims.Expired(time.Now()), ShouldBeFalse)
				So(claims.Expired(exp.Add(time.Second)), ShouldBeTrue)
			})
		})
	})

	Convey("Given an opaque token", t, func() {
		_, err := InspectToken("not-a-jwt")
		So(err, ShouldNotBeNil)
	})
}
