package inspector

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/joeycumines/replay-inspector/internal/future"
)

// ErrScriptRejected wraps the rejection reason of a scenario's promise.
var ErrScriptRejected = errors.New("scenario rejected")

// RunScript evaluates src on the loop. When the script's completion value
// is a promise, for example from an async main function, RunScript waits for
// it to settle.
func (i *Inspector) RunScript(ctx context.Context, name, src string) error {
	i.logger.Debug("[Inspector] running scenario", "name", name, "bytes", len(src))
	done := future.New[struct{}](i.loop)
	err := i.loop.RunOnLoopSync(func(vm *goja.Runtime) error {
		v, err := vm.RunScript(name, src)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}
		if _, ok := v.Export().(*goja.Promise); !ok {
			done.Resolve(struct{}{})
			return nil
		}
		then, ok := goja.AssertFunction(v.ToObject(vm).Get("then"))
		if !ok {
			return fmt.Errorf("scenario %s: promise has no then method", name)
		}
		_, err = then(v,
			vm.ToValue(func(goja.FunctionCall) goja.Value {
				done.Resolve(struct{}{})
				return goja.Undefined()
			}),
			vm.ToValue(func(call goja.FunctionCall) goja.Value {
				done.Reject(fmt.Errorf("scenario %s: %w: %s", name, ErrScriptRejected, call.Argument(0).String()))
				return goja.Undefined()
			}),
		)
		return err
	})
	if err != nil {
		return err
	}
	_, err = done.Wait(ctx)
	return err
}
