// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0
//

package util

import (
	"encoding/json"
	"reflect"

	"github.com/omec-project/mme/logger"
)

// MarshToJsonString renders v (or each element, if v is a slice) as a
// JSON string, for debug logging of NAS messages and contexts that
// don't otherwise implement String().
func MarshToJsonString(v interface{}) (result []string) {
	types := reflect.TypeOf(v)
	val := reflect.ValueOf(v)
	if types.Kind() == reflect.Slice {
		for i := 0; i < val.Len(); i++ {
			tmp, err := json.Marshal(val.Index(i).Interface())
			if err != nil {
				logger.UtilLog.Errorf("marshal error: %+v", err)
			}

			result = append(result, string(tmp))
		}
	} else {
		tmp, err := json.Marshal(v)
		if err != nil {
			logger.UtilLog.Errorf("marshal error: %+v", err)
		}

		result = append(result, string(tmp))
	}
	return
}
