package cli

// -----------------------------------------------------------------------------
// middleware.go – shared CLI bootstrap for the symbograft verbs
// -----------------------------------------------------------------------------
// Every verb file in this package registers its command via a
// Register*(root) function and routes through symboInitMiddleware, which
// loads .env, configures logging and reads the config file exactly once.
// -----------------------------------------------------------------------------

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"symbograft/pkg/config"
)

var (
	symboCfg  *config.Config
	symboOnce sync.Once
)

func symboInitMiddleware(cmd *cobra.Command, _ []string) error {
	var err error
	symboOnce.Do(func() {
		// 1) .env → ENV
		_ = godotenv.Load()

		// 2) Config (missing files fall back to defaults)
		symboCfg, err = config.LoadFromEnv()
		if err != nil {
			return
		}

		// 3) Logging level, env wins over config
		lvl := os.Getenv("LOG_LEVEL")
		if lvl == "" {
			lvl = symboCfg.Logging.Level
		}
		lv, e := logrus.ParseLevel(lvl)
		if e != nil {
			err = e
			return
		}
		logrus.SetLevel(lv)
	})
	return err
}

// bindsPathOr returns the explicit flag value or the configured default.
func bindsPathOr(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if symboCfg != nil && symboCfg.Paths.BindsFile != "" {
		return symboCfg.Paths.BindsFile
	}
	return "symbols.symdb"
}
