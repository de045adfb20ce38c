/*
 * This file is part of the Go Cesium Point Cloud Tiler distribution (https://github.com/mfbonfigli/gocesiumtiler).
 * Copyright (c) 2019 Massimo Federico Bonfigli - m.federico.bonfigli@gmail.com
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/pkg"
	"github.com/ecopia-map/potree_streamer/pkg/algorithm_manager/std_algorithm_manager"
	"github.com/ecopia-map/potree_streamer/tools"
)

const VERSION = "0.3.0"

const logo = `
             _                                _
 _ __   ___ | |_ _ __ ___  ___   ___ ___| |_ _ __ ___  __ _ _ __ ___   ___ _ __
| '_ \ / _ \| __| '__/ _ \/ _ \ / __/ __| __| '__/ _ \/ _' | '_ ' _ \ / _ \ '__|
| |_) | (_) | |_| | |  __/  __/ \__ \__ \ |_| | |  __/ (_| | | | | | |  __/ |
| .__/ \___/ \__|_|  \___|\___| |___/___/\__|_|  \___|\__,_|_| |_| |_|\___|_|
|_|  A Potree point cloud streaming loader written in golang
     Copyright YYYY - ecopia-map
`

const commands = "[load|export|serve|inspect]"

func main() {
	flagsGlobal := tools.ParseFlagsGlobal()
	defer glog.Flush()

	if *flagsGlobal.Help {
		showHelp()
		return
	}
	if *flagsGlobal.Version {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		glog.Exitf("Please specify a subcommand %s.", commands)
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case tools.CommandLoad, tools.CommandExport:
		mainCommandLoad(cmd, args)
	case tools.CommandServe:
		mainCommandServe(args)
	case tools.CommandInspect:
		mainCommandInspect(args)
	default:
		glog.Exitf("Unrecognized command [%q]. Command must be one of %s", cmd, commands)
	}
}

// parseCommand parses the flags of a command and resolves its options. It returns nil when the
// command only had to print its help or version.
func parseCommand(cmd string, args []string) *loader.LoaderOptions {
	flags, err := tools.ParseFlagsForCommand(cmd, args)
	if err != nil {
		glog.Exit(err)
	}

	if *flags.Help {
		showHelp()
		return nil
	}
	if *flags.Version {
		printVersion()
		return nil
	}

	// set logging and timestamp logging
	if *flags.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	if !*flags.LogTimestamp {
		tools.DisableLoggerTimestamp()
	}

	opts, err := tools.BuildLoaderOptions(&flags)
	if err != nil {
		glog.Exit("Error parsing input parameters: ", err)
	}
	if _, err := os.Stat(opts.Input); os.IsNotExist(err) {
		glog.Exit("Input cloud/folder not found: ", opts.Input)
	}
	glog.Infoln("options", tools.FmtJSONString(opts))
	return opts
}

func mainCommandLoad(cmd string, args []string) {
	opts := parseCommand(cmd, args)
	if opts == nil {
		return
	}
	if opts.ExportOptions != nil {
		if err := tools.CreateDirectoryIfDoesNotExist(opts.ExportOptions.Output); err != nil {
			glog.Exit("Cannot create output folder: ", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	defer timeTrack(time.Now(), cmd)
	reports, err := pkg.NewLoader(tools.NewStandardFileFinder(), std_algorithm_manager.NewAlgorithmManager(opts)).RunLoader(ctx, opts)
	for _, report := range reports {
		tools.LogOutput(tools.FmtJSONString(report))
	}
	if err != nil {
		glog.Exit("Error while loading: ", err)
	}
	tools.LogOutput("Loading Completed")
}

func mainCommandServe(args []string) {
	opts := parseCommand(tools.CommandServe, args)
	if opts == nil {
		return
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := pkg.RunServer(ctx, opts); err != nil {
		glog.Exit(err)
	}
}

func mainCommandInspect(args []string) {
	opts := parseCommand(tools.CommandInspect, args)
	if opts == nil {
		return
	}

	summary, err := pkg.Inspect(opts.Input, opts.MoveToOrigin)
	if err != nil {
		glog.Exit("Error while inspecting: ", err)
	}
	fmt.Println(tools.FmtJSONString(summary))
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(strings.ReplaceAll(logo, "YYYY", strconv.Itoa(time.Now().Year())))
}

func showHelp() {
	printLogo()
	fmt.Println("***")
	fmt.Println("potree_streamer loads Potree 1.x point clouds in time bounded steps and hands them over as render chunks")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Usage: potree_streamer " + commands + " -input <cloud> [flags]")
	fmt.Println("Run a command with -help for its flags.")
	fmt.Println("")
	fmt.Println("Global flags: ")
	flag.CommandLine.SetOutput(os.Stdout)
	flag.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
