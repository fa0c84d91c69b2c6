package main

import (
	"context"
	"encoding/json"
	"os"
)

func runScripts() {
	runCrons := env.Crons
	if runCrons == "on" {
		go startCrons()
	}

	syncNow := os.Getenv("SYNCNOW")
	if syncNow != "" {
		go runCloudRadialTokenSync()
	}

	// DISPATCHFILE runs a saved form submission through the pipeline and prints the response
	dispatchFile := os.Getenv("DISPATCHFILE")
	if dispatchFile != "" {
		replayDispatchFile(dispatchFile)
	}

	testEmail := os.Getenv("TESTEMAIL")
	if testEmail != "" {
		sendTestEmail(testEmail)
	}
}

func replayDispatchFile(path string) {
	body, err := os.ReadFile(path)
	if err != nil {
		ErrorLog.Println("replayDispatchFile read err: ", err)
		return
	}

	notes := newConnectWiseClientFromPasswords()
	result := newProductionDispatcher(notes).Dispatch(context.Background(), body)

	pretty, _ := json.MarshalIndent(result.Response, "", "  ")
	InfoLog.Printf("replayed %s -> HTTP %d\n%s", path, result.HTTPStatus, pretty)
}
