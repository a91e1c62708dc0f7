package i18n

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func clearLocaleEnv(t *testing.T) {
	for _, key := range []string{"APKSET_LANG", "LC_ALL", "LC_MESSAGES", "LANG"} {
		t.Setenv(key, "")
	}
}

func TestSelectLanguage(t *testing.T) {
	clearLocaleEnv(t)

	assert.Equal(t, language.English, selectLanguage("en"))
	assert.Equal(t, language.Chinese, selectLanguage("zh"))
	assert.Equal(t, language.Chinese, selectLanguage("zh_CN.UTF-8"))
	assert.Equal(t, language.English, selectLanguage("fr"))

	t.Setenv("LANG", "C")
	assert.Equal(t, language.English, selectLanguage(""))

	t.Setenv("APKSET_LANG", "zh-TW")
	assert.Equal(t, language.Chinese, selectLanguage(""))
	assert.Equal(t, language.English, selectLanguage("en-US"), "the flag wins over the environment")
}

func TestTranslate(t *testing.T) {
	clearLocaleEnv(t)

	require.NoError(t, Init("en"))
	assert.Equal(t, language.English, CurrentLanguage())
	assert.Equal(t, "Install APK sets onto connected Android devices", T("cmd.root.short"))
	assert.Equal(t, "Installed 1 APK(s) on id1", T("install.success", map[string]interface{}{"count": 1, "device": "id1"}))
	assert.Equal(t, "Installed 3 APK(s) on id1", T("install.success", map[string]interface{}{"count": 3, "device": "id1"}))
	assert.Equal(t, "no.such.message", T("no.such.message"))

	require.NoError(t, Init("zh"))
	assert.Equal(t, "已将 2 个 APK 解压到 /tmp/out", T("extract.success", map[string]interface{}{"count": 2, "dir": "/tmp/out"}))

	require.NoError(t, Init("en"))
}

func TestLocalesHaveSameMessages(t *testing.T) {
	ids := func(name string) map[string]bool {
		data, err := localeFS.ReadFile(name)
		require.NoError(t, err)
		var messages map[string]interface{}
		require.NoError(t, toml.Unmarshal(data, &messages))
		set := map[string]bool{}
		for id := range messages {
			set[id] = true
		}
		return set
	}

	en, zh := ids("locales/active.en.toml"), ids("locales/active.zh.toml")
	require.NotEmpty(t, en)
	assert.Equal(t, en, zh)
}
