package main

import (
	"fmt"

	"github.com/temirov/cmdsrv/internal/cli"
	"github.com/temirov/cmdsrv/internal/utils"
)

// main is the entry point for the cmdsrv command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger("")
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer func() { _ = loggerInstance.Sync() }()
	if applicationExecutionError := cli.Execute(); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
}
