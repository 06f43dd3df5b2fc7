package livereload

import (
	"testing"

	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/livereload/mocks"
)

func TestMaybeNotify(t *testing.T) {
	reload := config.NewPathSet("cartridge/static/default/js/app.js", "my file.css")
	root := "https://u:p@h/Cart"

	tests := []struct {
		name      string
		dest      string
		expNotify []string
	}{
		{
			name:      "reload file",
			dest:      "https://u:p@h/Cart/cartridge/static/default/js/app.js",
			expNotify: []string{"cartridge/static/default/js/app.js"},
		},
		{
			name:      "escaped reload file",
			dest:      "https://u:p@h/Cart/my%20file.css",
			expNotify: []string{"my file.css"},
		},
		{
			name: "other file",
			dest: "https://u:p@h/Cart/cartridge/static/default/js/other.js",
		},
		{
			name: "directory",
			dest: "https://u:p@h/Cart/cartridge",
		},
		{
			name: "target root",
			dest: root,
		},
		{
			name: "other target",
			dest: "https://u:p@h/Cart2/my%20file.css",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			notifier := &mocks.Notifier{}
			if test.expNotify != nil {
				notifier.On("Changed", test.expNotify).Once()
			}

			log, hook := logrusTest.NewNullLogger()
			gate := NewGate(notifier, root, reload, log)
			assert.Equal(t, test.expNotify != nil, gate.MaybeNotify(test.dest))
			notifier.AssertExpectations(t)

			if test.expNotify == nil {
				assert.Empty(t, hook.AllEntries())
			}
		})
	}
}

func TestMaybeNotifyEmptyReloadSet(t *testing.T) {
	notifier := &mocks.Notifier{}
	log, _ := logrusTest.NewNullLogger()
	gate := NewGate(notifier, "https://h/Cart", config.NewPathSet(), log)
	assert.False(t, gate.MaybeNotify("https://h/Cart/a.js"))
	notifier.AssertExpectations(t)
}
