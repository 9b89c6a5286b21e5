package account

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/meshpoint/accounts/internal/store/core"
)

const (
	facebookPictureURL = "https://graph.facebook.com/%s/picture?type=square"
	gravatarURL        = "https://www.gravatar.com/avatar/%x?d=identicon&s=%d"
	defaultAvatarURL   = "/static/images/default-user.png"
	defaultAvatarSize  = 50
)

// AvatarURL resolves the profile image for a user according to its
// ImageSource: facebook builds the graph URL from the linked subject,
// twitter and google use the picture stored at exchange time, gravatar
// hashes the email, anything else falls back to gravatar when an email
// exists and to the static default otherwise.
func AvatarURL(u *core.User) string {
	switch u.ProfileImage {
	case core.ImageFacebook:
		if id := u.Identity("facebook"); id != nil {
			return fmt.Sprintf(facebookPictureURL, id.ProviderID)
		}
	case core.ImageTwitter:
		if id := u.Identity("twitter"); id != nil && id.Picture != "" {
			return id.Picture
		}
	case core.ImageGoogle:
		if id := u.Identity("google"); id != nil && id.Picture != "" {
			return id.Picture
		}
	case core.ImageGravatar:
		if u.Email != "" {
			return gravatar(u.Email)
		}
	}
	if u.Email != "" {
		return gravatar(u.Email)
	}
	// Sin email no hay hash de gravatar posible.
	return defaultAvatarURL
}

func gravatar(key string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(key))))
	return fmt.Sprintf(gravatarURL, sum, defaultAvatarSize)
}
