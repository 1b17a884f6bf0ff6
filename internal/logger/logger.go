package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log — общий логгер приложения. Инициализируется один раз в main.
var Log *logrus.Logger

// Init настраивает логгер: JSON в production, читаемый текст в development.
// Неизвестный уровень откатывается к info.
func Init(level, env string) {
	Log = logrus.New()
	Log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if env == "development" {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	Log.SetFormatter(&logrus.JSONFormatter{})
}
