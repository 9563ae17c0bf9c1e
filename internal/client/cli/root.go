package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

func (a *App) getStatus() string {
	user := "anonymous"
	if a.isLoggedIn() {
		user = a.userName
	}
	mode := a.Mode
	if mode == "" {
		mode = ModeOffline
	}
	return fmt.Sprintf("[%s|%s]> ", mode, user)
}

func printHelp() {
	fmt.Println(`Commands:
  register            create an account
  login               authenticate
  logout              forget the session
  scan <dir>          find and ingest media files under <dir>
  list                show registered assets
  select <arg>        all | none | <n> | <n>-<m> | +<n>
  unselect <arg>      all | <n>
  sort asc|desc       change display order
  check               re-run server existence checks
  upload              upload selected assets missing remotely
  queue               show the upload queue
  clear               drop completed queue items
  remove <n>          drop one queue item
  help                this text
  exit                quit`)
}

// Root runs the interactive loop until exit or EOF.
func (a *App) Root(ctx context.Context) {

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	scanner := bufio.NewScanner(a.reader)

	fmt.Println("picsync: type 'help' for commands")

	for {
		fmt.Print(a.getStatus())

		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd, args := parts[0], parts[1:]

		var err error

		switch cmd {
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			a.Logout()
		case "scan":
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			err = a.Scan(ctx, dir)
		case "list":
			a.List()
		case "select":
			if len(args) == 0 {
				err = fmt.Errorf("usage: select all|none|<n>|<n>-<m>|+<n>")
			} else {
				err = a.Select(args[0])
			}
		case "unselect":
			if len(args) == 0 {
				err = fmt.Errorf("usage: unselect all|<n>")
			} else {
				err = a.UnselectCmd(args[0])
			}
		case "sort":
			if len(args) == 0 {
				err = fmt.Errorf("usage: sort asc|desc")
			} else {
				err = a.Sort(args[0])
			}
		case "check":
			a.Check(ctx)
		case "upload":
			err = a.UploadSelected(ctx)
		case "queue":
			a.ShowQueue()
		case "clear":
			a.ClearQueue()
		case "remove":
			if len(args) == 0 {
				err = fmt.Errorf("usage: remove <n>")
			} else {
				err = a.RemoveQueued(args[0])
			}
		case "help":
			printHelp()
		case "exit", "quit":
			return
		default:
			fmt.Printf("Unknown command %q, type 'help'.\n", cmd)
		}

		if err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}
