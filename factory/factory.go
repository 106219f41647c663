/*
 * MME Configuration Factory
 */

package factory

import (
	"fmt"
	"os"
	"reflect"

	"gopkg.in/yaml.v2"

	"github.com/omec-project/mme/emm"
	"github.com/omec-project/mme/logger"
)

var MmeConfig Config

func InitConfigFactory(f string) error {
	content, err := os.ReadFile(f)
	if err != nil {
		return err
	}
	MmeConfig = Config{}
	if yamlErr := yaml.Unmarshal(content, &MmeConfig); yamlErr != nil {
		return yamlErr
	}
	return nil
}

// UpdateConfig reloads f and logs which top-level sections changed,
// mirroring the teacher's UpdateAmfConfig diff-logging pattern used by
// service.MME.WatchConfig's fsnotify watch.
func UpdateConfig(f string) error {
	content, err := os.ReadFile(f)
	if err != nil {
		return err
	}
	var updated Config
	if yamlErr := yaml.Unmarshal(content, &updated); yamlErr != nil {
		return yamlErr
	}

	if !reflect.DeepEqual(MmeConfig.Configuration.MmeName, updated.Configuration.MmeName) {
		logger.CfgLog.Infof("updated mmeName to %v", updated.Configuration.MmeName)
	}
	if !reflect.DeepEqual(MmeConfig.Configuration.EmergencyAttach, updated.Configuration.EmergencyAttach) {
		logger.CfgLog.Infof("updated emergencyAttach to %+v", updated.Configuration.EmergencyAttach)
	}
	if !reflect.DeepEqual(MmeConfig.Configuration.UnauthenticatedImsi, updated.Configuration.UnauthenticatedImsi) {
		logger.CfgLog.Infof("updated unauthenticatedImsi to %+v", updated.Configuration.UnauthenticatedImsi)
	}
	if !reflect.DeepEqual(MmeConfig.Configuration.ForceIdentifyOnGuti, updated.Configuration.ForceIdentifyOnGuti) {
		logger.CfgLog.Infof("updated forceIdentifyOnGuti to %v", updated.Configuration.ForceIdentifyOnGuti)
	}
	if !reflect.DeepEqual(MmeConfig.Configuration.Gummei, updated.Configuration.Gummei) {
		logger.CfgLog.Infof("updated gummei to %+v", updated.Configuration.Gummei)
	}
	if !reflect.DeepEqual(MmeConfig.Configuration.T3450, updated.Configuration.T3450) {
		logger.CfgLog.Infof("updated t3450 to %+v", updated.Configuration.T3450)
	}
	if !reflect.DeepEqual(MmeConfig.Configuration.T3460, updated.Configuration.T3460) {
		logger.CfgLog.Infof("updated t3460 to %+v", updated.Configuration.T3460)
	}
	if !reflect.DeepEqual(MmeConfig.Configuration.T3470, updated.Configuration.T3470) {
		logger.CfgLog.Infof("updated t3470 to %+v", updated.Configuration.T3470)
	}
	if !reflect.DeepEqual(MmeConfig.Configuration.PlmnMncLength, updated.Configuration.PlmnMncLength) {
		logger.CfgLog.Infof("updated plmnMncLength table to %+v", updated.Configuration.PlmnMncLength)
	}

	MmeConfig = updated
	return nil
}

func CheckConfigVersion() error {
	currentVersion := MmeConfig.GetVersion()
	if currentVersion != MmeExpectedConfigVersion {
		return fmt.Errorf("config version is [%s], but expected is [%s]", currentVersion, MmeExpectedConfigVersion)
	}
	logger.CfgLog.Infof("config version [%s]", currentVersion)
	return nil
}

// ToEmmConfig maps the YAML-level Configuration onto the emm package's
// runtime Config, the boundary between the ambient config layer and
// the Attach core (spec.md 6).
func (c *Configuration) ToEmmConfig() emm.Config {
	return emm.Config{
		EmergencyAttachEnable:     c.EmergencyAttach.Enable,
		UnauthenticatedImsiEnable: c.UnauthenticatedImsi.Enable,
		ForceIdentifyOnGuti:       c.ForceIdentifyOnGuti,
		Gummei:                    c.Gummei.ToGummei(),
		T3450:                     emm.TimerConfig{Enable: c.T3450.Enable, ExpireTime: c.T3450.ExpireTime, MaxRetryTimes: c.T3450.MaxRetryTimes},
		T3460:                     emm.TimerConfig{Enable: c.T3460.Enable, ExpireTime: c.T3460.ExpireTime, MaxRetryTimes: c.T3460.MaxRetryTimes},
		T3470:                     emm.TimerConfig{Enable: c.T3470.Enable, ExpireTime: c.T3470.ExpireTime, MaxRetryTimes: c.T3470.MaxRetryTimes},
	}
}
