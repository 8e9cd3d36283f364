// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"reflect"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"

	"github.com/bitmark-inc/confidentiald/fault"
)

// ParseConfigurationFile - execute a Lua script and map the table it
// returns onto config, which must be a non-nil pointer to a struct
//
// the script sees arg[0] = its own path so it can resolve entries
// relative to the file location
func ParseConfigurationFile(fileName string, config interface{}) error {

	value := reflect.ValueOf(config)
	if reflect.Ptr != value.Kind() || value.IsNil() || reflect.Struct != value.Elem().Kind() {
		return fault.ErrInvalidStructPointer
	}

	L := lua.NewState()
	defer L.Close()

	L.OpenLibs()

	// global "arg" table, arg[0] = configuration file
	arg := &lua.LTable{}
	arg.Insert(0, lua.LString(fileName))
	L.SetGlobal("arg", arg)

	if err := L.DoFile(fileName); nil != err {
		return err
	}

	table, ok := L.Get(L.GetTop()).(*lua.LTable)
	if !ok {
		return fault.InvalidError("configuration script must return a table")
	}

	mapperOption := gluamapper.Option{
		NameFunc: func(s string) string {
			return s
		},
		TagName: "gluamapper",
	}
	mapper := gluamapper.Mapper{Option: mapperOption}
	if err := mapper.Map(table, config); nil != err {
		return fault.InvalidError("configuration: " + err.Error())
	}
	return nil
}
