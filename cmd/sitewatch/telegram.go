package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/fwojciec/sitewatch"
	"github.com/joho/godotenv"
)

// chatIDEnv is the variable the chat ID is stored under.
const chatIDEnv = "SITEWATCH_TELEGRAM_CHAT_ID"

// Run executes the telegram-setup command.
func (c *TelegramSetupCmd) Run(deps *Dependencies) error {
	if deps.Telegram == nil {
		fmt.Fprintln(deps.Stderr, "error: no Telegram token. Set SITEWATCH_TELEGRAM_TOKEN first.")
		return sitewatch.Errorf(sitewatch.EINVALID, "telegram token not set")
	}

	fmt.Fprintln(deps.Stdout, "Send any message to your bot on Telegram...")

	for attempt := 0; attempt < c.Attempts; attempt++ {
		chatID, err := deps.Telegram.FindChatID(deps.Ctx)
		if err != nil {
			deps.Logger.Debug("poll telegram updates", "attempt", attempt+1, "err", err)
		} else if chatID != "" {
			if err := saveEnv(c.EnvFile, chatIDEnv, chatID); err != nil {
				fmt.Fprintf(deps.Stderr, "error: could not write %s: %v\n", c.EnvFile, err)
				fmt.Fprintf(deps.Stdout, "Chat ID: %s\nSet %s=%s to enable notifications.\n", chatID, chatIDEnv, chatID)
				return err
			}
			fmt.Fprintf(deps.Stdout, "Chat ID set to: %s (saved to %s)\n", chatID, c.EnvFile)
			return nil
		}

		if attempt == c.Attempts-1 {
			break
		}
		select {
		case <-deps.Ctx.Done():
			return deps.Ctx.Err()
		case <-time.After(c.Wait):
		}
	}

	fmt.Fprintln(deps.Stdout, "Timeout: no messages received. Send a message to your bot and try again.")
	return sitewatch.Errorf(sitewatch.ENOTFOUND, "no telegram chat found")
}

// saveEnv sets key in the dotenv file at path, keeping the other entries.
func saveEnv(path, key, value string) error {
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		env = map[string]string{}
	} else if err != nil {
		return err
	}
	env[key] = value
	return godotenv.Write(env, path)
}
