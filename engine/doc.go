// Package engine wires all autowebsites subsystems together: the quota
// provider, lock manager, lead pipeline, extension registry, stream
// broker, instance registrar, and scheduler.
//
// The engine package exists to break a fundamental import cycle: the
// root autowebsites package defines Entity (imported by run, cluster,
// etc.) and therefore cannot import those packages back. Engine sits
// above all subsystem packages and below the application layer.
//
// # Building an Engine
//
//	o, err := autowebsites.New(
//	    autowebsites.WithStore(pgStore),
//	    autowebsites.WithDailyEmailLimit(50),
//	)
//
//	eng, err := engine.Build(o,
//	    engine.WithSource(webdir.New(directoryURL)),
//	    engine.WithGenerator(gemini.New(client)),
//	    engine.WithDeployer(staticsite.New(dir, baseURL)),
//	    engine.WithComposer(outreach.NewTemplateComposer()),
//	    engine.WithSender(smtp.New(addr)),
//	    engine.WithCronSchedule("0 22 * * *"),
//	    engine.WithExtension(myExtension),
//	)
//
// # Running
//
//	eng.Start(ctx)                      // arms the trigger, registers the instance
//	ack := eng.TriggerNow(ctx, nil)     // walks the admission gates immediately
//	eng.CancelCurrent()                 // asks the active cycle to stop
//	eng.Stop(ctx)                       // drains, deregisters, closes the store
//
// Collaborator options are optional: a nil generator, deployer,
// composer, or sender disables that phase, which is how dry-run
// deployments omit adapters instead of stubbing them.
package engine
