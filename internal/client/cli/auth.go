package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/picsync/internal/common"
)

var getSimpleText = (*App).GetSimpleText
var getPassword = (*App).GetPassword

func (a *App) Register(ctx context.Context) error {

	username, err := getSimpleText(a, "Username")
	if err != nil {
		return err
	}

	password, err := getPassword(a, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Register(ctx, username, string(password)); err != nil {
		return err
	}

	fmt.Println("Registered. You can log in now.")
	return nil
}

func (a *App) Login(ctx context.Context) error {

	username, err := getSimpleText(a, "Username")
	if err != nil {
		return err
	}

	password, err := getPassword(a, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Login(ctx, username, string(password)); err != nil {
		return err
	}

	a.userName = username
	fmt.Printf("Logged in as %s\n", username)
	return nil
}

func (a *App) Logout() {
	a.api.Logout()
	a.userName = ""
	fmt.Println("Logged out.")
}
