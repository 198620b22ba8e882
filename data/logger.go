package data

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log はアプリケーション全体で共有するロガーです。InitLogger を呼ぶ前でも使用できます。
var Log = logrus.New()

// InitLogger は環境変数 LOG_LEVEL / LOG_FORMAT に従ってロガーを設定します。
func InitLogger() {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}
}
