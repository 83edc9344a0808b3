package main

import (
	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
)

// mkToken prints a signed access token for manual API calls. Production
// tokens are issued by the identity service; this is a local convenience.
func (cli *commandLine) mkToken(id, name string, roles []string) error {
	claims := echoapi.GetActorClaims(cli.conf, core.Actor{ID: id, Name: name, Roles: roles})
	token, err := echoapi.GenerateToken(cli.conf, claims)
	if err != nil {
		return err
	}
	logger.Printf("token: %s", token)
	return nil
}
