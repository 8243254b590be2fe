package moodle

import (
	"context"
	"fmt"
)

// UserField is a lookup key accepted by core_user_get_users_by_field.
type UserField string

// Supported lookup fields.
const (
	UserFieldID       UserField = "id"
	UserFieldUsername UserField = "username"
	UserFieldEmail    UserField = "email"
)

// Valid reports whether f is one of the supported lookup fields.
func (f UserField) Valid() bool {
	switch f {
	case UserFieldID, UserFieldUsername, UserFieldEmail:
		return true
	}
	return false
}

// Account defaults applied to self-registered users.
const (
	defaultAuth     = "manual"
	defaultCountry  = "NG"
	defaultLang     = "en"
	defaultTimezone = "Africa/Lagos"
)

// GetUserByField returns the first user matching field=value, or nil.
func (c *Client) GetUserByField(ctx context.Context, field UserField, value string) (*User, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("moodle: unsupported user field %q", field)
	}
	payload, err := c.call(ctx, FnGetUsersByField, Params{
		"field":  string(field),
		"values": []string{value},
	})
	if err != nil {
		return nil, err
	}
	users, err := decodeList[User](payload, userListWrapKey)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// GetUserByEmail returns the user with the given email, or nil.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return c.GetUserByField(ctx, UserFieldEmail, email)
}

// GetUserByUsername returns the user with the given username, or nil.
func (c *Client) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return c.GetUserByField(ctx, UserFieldUsername, username)
}

type createdUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// CreateUser registers a manual-auth account and returns its id and username.
func (c *Client) CreateUser(ctx context.Context, u NewUser) (*User, error) {
	payload, err := c.call(ctx, FnCreateUsers, Params{
		"users": []Params{{
			"username":  u.Username,
			"password":  u.Password,
			"firstname": u.FirstName,
			"lastname":  u.LastName,
			"email":     u.Email,
			"auth":      defaultAuth,
			"country":   defaultCountry,
			"lang":      defaultLang,
			"timezone":  defaultTimezone,
		}},
	})
	if err != nil {
		return nil, err
	}
	created, err := decodeList[createdUser](payload, userListWrapKey)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 || created[0].ID <= 0 {
		return nil, ErrUserNotCreated
	}
	username := created[0].Username
	if username == "" {
		username = u.Username
	}
	return &User{
		ID:        created[0].ID,
		Username:  username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}, nil
}

// GetSiteInfo identifies the account behind the client's token.
func (c *Client) GetSiteInfo(ctx context.Context) (*SiteInfo, error) {
	var info SiteInfo
	if err := c.Call(ctx, FnGetSiteInfo, Params{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUserGrades returns the grade report of userID in courseID.
func (c *Client) GetUserGrades(ctx context.Context, courseID, userID int64) ([]UserGrades, error) {
	payload, err := c.call(ctx, FnGetGradeItems, Params{"courseid": courseID, "userid": userID})
	if err != nil {
		return nil, err
	}
	return decodeList[UserGrades](payload, gradesListWrapKey)
}

// GetRecentItems returns the activities userID accessed most recently.
func (c *Client) GetRecentItems(ctx context.Context, userID int64, limit int) ([]RecentItem, error) {
	if limit <= 0 {
		limit = defaultRecentItemsLimit
	}
	payload, err := c.call(ctx, FnGetRecentItems, Params{"userid": userID, "limit": limit})
	if err != nil {
		return nil, err
	}
	return decodeList[RecentItem](payload, recentListWrapKey)
}
